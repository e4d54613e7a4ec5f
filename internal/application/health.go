package application

import (
	"context"
	"fmt"
	"time"

	"printops-snapshot/internal/store"
)

// Component health states
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
	HealthDisabled  = "disabled"
)

// HealthReport summarizes the state of every configured component
type HealthReport struct {
	Timestamp       time.Time         `json:"timestamp"`
	OverallHealth   string            `json:"overall_health"`
	ComponentStatus map[string]string `json:"component_status"`
	Issues          []string          `json:"issues"`
	Recommendations []string          `json:"recommendations"`
}

// HealthCheck probes the backing store, preferences and archive. The backing
// store is read, never written.
func (app *Application) HealthCheck(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Timestamp:       app.now(),
		OverallHealth:   HealthHealthy,
		ComponentStatus: make(map[string]string),
		Issues:          []string{},
		Recommendations: []string{},
	}

	if _, err := app.backing.GetAll(ctx, store.CollectionPrinters); err != nil {
		report.ComponentStatus["backing"] = HealthUnhealthy
		report.Issues = append(report.Issues, fmt.Sprintf("Backing store is not reachable: %v", err))
		report.Recommendations = append(report.Recommendations, "Check the backing store connection settings")
		report.OverallHealth = HealthUnhealthy
	} else {
		report.ComponentStatus["backing"] = HealthHealthy
	}

	switch {
	case app.prefs == nil:
		report.ComponentStatus["preferences"] = HealthDisabled
	default:
		if _, _, err := app.prefs.Get("printerViewMode"); err != nil {
			report.ComponentStatus["preferences"] = HealthDegraded
			report.Issues = append(report.Issues, fmt.Sprintf("Preferences cannot be read: %v", err))
			report.Recommendations = append(report.Recommendations, "Repair or remove the preference file; defaults are used meanwhile")
			report.degrade()
		} else {
			report.ComponentStatus["preferences"] = HealthHealthy
		}
	}

	switch {
	case app.archive == nil:
		report.ComponentStatus["archive"] = HealthDisabled
	default:
		if err := app.archive.HealthCheck(ctx); err != nil {
			report.ComponentStatus["archive"] = HealthDegraded
			report.Issues = append(report.Issues, fmt.Sprintf("Artifact archive is not operational: %v", err))
			report.Recommendations = append(report.Recommendations, "Check archive storage and encryption key configuration")
			report.degrade()
		} else {
			report.ComponentStatus["archive"] = HealthHealthy
		}
		if !app.archive.Config().Encryption.Enabled {
			report.Recommendations = append(report.Recommendations, "Consider enabling archive encryption; artifacts contain customer data")
		}
	}

	app.logger.WithFields(map[string]interface{}{
		"overall": report.OverallHealth,
		"issues":  len(report.Issues),
	}).Debug("Health check completed")
	return report
}

func (r *HealthReport) degrade() {
	if r.OverallHealth == HealthHealthy {
		r.OverallHealth = HealthDegraded
	}
}
