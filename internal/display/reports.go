package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"printops-snapshot/internal/application"
	"printops-snapshot/internal/archive"
	"printops-snapshot/internal/localmigrate"
	"printops-snapshot/internal/snapshot"

	"github.com/dustin/go-humanize"
)

// ExportSummary describes a finished export
type ExportSummary struct {
	Path        string         `json:"path,omitempty" yaml:"path,omitempty"`
	ArchiveID   string         `json:"archive_id,omitempty" yaml:"archive_id,omitempty"`
	Version     string         `json:"version" yaml:"version"`
	ExportedAt  time.Time      `json:"exported_at" yaml:"exported_at"`
	Checksum    string         `json:"checksum" yaml:"checksum"`
	Bytes       int            `json:"bytes" yaml:"bytes"`
	Collections map[string]int `json:"collections" yaml:"collections"`
}

// NewExportSummary summarizes snap as written to path
func NewExportSummary(snap *snapshot.Snapshot, path string, size int) *ExportSummary {
	summary := &ExportSummary{
		Path:        path,
		Version:     snap.Version,
		ExportedAt:  snap.ExportedAt,
		Checksum:    snap.Checksum,
		Bytes:       size,
		Collections: make(map[string]int, len(snap.Collections)),
	}
	for name, records := range snap.Collections {
		summary.Collections[name] = len(records)
	}
	return summary
}

// Export renders an export summary
func (s *Service) Export(summary *ExportSummary) error {
	if ok, err := s.Structured(summary); ok {
		return err
	}
	total := 0
	for _, n := range summary.Collections {
		total += n
	}
	target := summary.Path
	if summary.ArchiveID != "" {
		target = "archive " + summary.ArchiveID
	}
	if s.Compact() {
		s.Println(fmt.Sprintf("exported %d records (v%s) to %s", total, summary.Version, target))
		return nil
	}

	s.Success(fmt.Sprintf("Exported %d records to %s", total, target))
	if s.config.QuietMode {
		return nil
	}
	s.KeyValues([][2]string{
		{"Version", summary.Version},
		{"Exported at", summary.ExportedAt.Format(time.RFC3339)},
		{"Checksum", summary.Checksum},
		{"Size", humanBytes(int64(summary.Bytes))},
	})
	s.collectionTable(summary.Collections)
	return nil
}

// ImportResult renders the outcome of an import
func (s *Service) ImportResult(result *snapshot.MigrationResult) error {
	if ok, err := s.Structured(result); ok {
		return err
	}
	if s.Compact() {
		status := "ok"
		if !result.Success {
			status = "failed: " + result.Error
		}
		s.Println(fmt.Sprintf("import v%s %s migrated=%d skipped=%d warnings=%d",
			result.Version, status, result.MigratedRecords, result.SkippedRecords, len(result.Warnings)))
		return nil
	}

	if result.Success {
		s.Success(fmt.Sprintf("Imported %d records from a version %s snapshot", result.MigratedRecords, result.Version))
	} else {
		msg := result.Error
		if result.ErrorType != "" {
			msg = fmt.Sprintf("%s (%s)", msg, result.ErrorType)
		}
		s.Error("Import failed: " + msg)
	}
	if result.SkippedRecords > 0 {
		s.Warning(fmt.Sprintf("%d records were skipped", result.SkippedRecords))
	}
	s.list("Warnings", result.Warnings, s.theme.Warning)
	return nil
}

// LocalMigration renders the outcome of a local-to-remote migration
func (s *Service) LocalMigration(result localmigrate.Result) error {
	if ok, err := s.Structured(result); ok {
		return err
	}
	if s.Compact() {
		s.Println(fmt.Sprintf("migrate-local success=%t errors=%d: %s", result.Success, len(result.Errors), result.Message))
		return nil
	}

	if result.Success {
		s.Success(result.Message)
	} else {
		s.Error(result.Message)
	}
	s.list("Errors", result.Errors, s.theme.Error)
	return nil
}

// ArchiveList renders archived artifacts
func (s *Service) ArchiveList(artifacts []*archive.Metadata) error {
	if artifacts == nil {
		artifacts = []*archive.Metadata{}
	}
	if ok, err := s.Structured(artifacts); ok {
		return err
	}
	if len(artifacts) == 0 {
		s.Info("No archived snapshots")
		return nil
	}
	if s.Compact() {
		for _, md := range artifacts {
			s.Println(md.ID)
		}
		return nil
	}

	table := s.NewTable("ID", "Created", "Version", "Records", "Size", "Envelope", "Exported by")
	table.SetAlignment(3, AlignRight).SetAlignment(4, AlignRight)
	for _, md := range artifacts {
		envelope := strings.ToLower(string(md.Compression))
		if md.Encrypted {
			envelope += "+aes"
		}
		table.AddRow(
			md.ID,
			md.CreatedAt.Local().Format("2006-01-02 15:04"),
			md.SchemaVersion,
			fmt.Sprintf("%d", md.RecordCount),
			humanBytes(md.StoredSize),
			envelope,
			md.ExportedBy,
		)
	}
	s.RenderTable(table)
	return nil
}

// Pruned renders the ids removed by an archive prune
func (s *Service) Pruned(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	if ok, err := s.Structured(map[string][]string{"deleted": ids}); ok {
		return err
	}
	if len(ids) == 0 {
		s.Info("Nothing to prune")
		return nil
	}
	s.Success(fmt.Sprintf("Pruned %d archived %s", len(ids), plural(len(ids), "snapshot")))
	for _, id := range ids {
		s.Println("  " + id)
	}
	return nil
}

// Health renders a health report
func (s *Service) Health(report *application.HealthReport) error {
	if ok, err := s.Structured(report); ok {
		return err
	}
	if s.Compact() {
		s.Println("health " + report.OverallHealth)
		return nil
	}

	s.Header("Health check")
	names := make([]string, 0, len(report.ComponentStatus))
	for name := range report.ComponentStatus {
		names = append(names, name)
	}
	sort.Strings(names)

	table := s.NewTable("Component", "Status")
	for _, name := range names {
		table.AddRow(name, report.ComponentStatus[name])
	}
	s.RenderTable(table)

	switch report.OverallHealth {
	case application.HealthHealthy:
		s.Success("All components are healthy")
	case application.HealthDegraded:
		s.Warning("Some components are degraded")
	default:
		s.Error("Some components are unhealthy")
	}
	s.list("Issues", report.Issues, s.theme.Error)
	s.list("Recommendations", report.Recommendations, s.theme.Info)
	return nil
}

// Inspect renders an artifact inspection report
func (s *Service) Inspect(report *application.InspectReport) error {
	if ok, err := s.Structured(report); ok {
		return err
	}
	if s.Compact() {
		s.Println(fmt.Sprintf("v%s records=%d checksum_valid=%t importable=%t",
			report.Version.Version, report.TotalRecords, report.ChecksumValid, report.Importable()))
		return nil
	}

	s.Header("Snapshot")
	migration := "no"
	if report.Version.NeedsMigration {
		migration = "yes, to " + snapshot.CurrentVersion
	}
	pairs := [][2]string{
		{"Version", report.Version.Version},
		{"Migration", migration},
		{"Checksum valid", fmt.Sprintf("%t", report.ChecksumValid)},
		{"Records", fmt.Sprintf("%d", report.TotalRecords)},
	}
	if !report.ExportedAt.IsZero() {
		pairs = append(pairs, [2]string{"Exported at", report.ExportedAt.Format(time.RFC3339)})
	}
	if report.Metadata.ProducerName != "" {
		pairs = append(pairs, [2]string{"Producer", strings.TrimSpace(report.Metadata.ProducerName + " " + report.Metadata.ProducerVersion)})
	}
	if report.Metadata.ExportedBy != "" {
		pairs = append(pairs, [2]string{"Exported by", report.Metadata.ExportedBy})
	}
	if len(report.PreferenceKeys) > 0 {
		pairs = append(pairs, [2]string{"Preferences", strings.Join(report.PreferenceKeys, ", ")})
	}
	s.KeyValues(pairs)
	s.collectionTable(report.Collections)

	if report.Importable() {
		s.Success("Snapshot can be imported")
	} else {
		s.Error("Snapshot cannot be imported")
		s.list("Problems", report.Problems, s.theme.Error)
	}
	return nil
}

// MigrationProgress returns a localmigrate progress callback that draws a
// bar, or nil when progress output is disabled
func (s *Service) MigrationProgress() (localmigrate.ProgressFunc, func()) {
	var bar *ProgressBar
	finish := func() {
		if bar != nil {
			bar.Finish("")
		}
	}
	if !s.config.IsProgressEnabled() {
		return nil, finish
	}
	return func(p localmigrate.Progress) {
		if p.Status == localmigrate.StatusError {
			return
		}
		if bar == nil {
			bar = s.NewProgressBar(p.Total)
		}
		bar.Update(p.Current, p.Total, p.Message)
	}, finish
}

func (s *Service) collectionTable(collections map[string]int) {
	if len(collections) == 0 || s.config.QuietMode {
		return
	}
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	table := s.NewTable("Collection", "Records")
	table.SetAlignment(1, AlignRight)
	for _, name := range names {
		table.AddRow(name, fmt.Sprintf("%d", collections[name]))
	}
	s.RenderTable(table)
}

func (s *Service) list(title string, items []string, clr Color) {
	if len(items) == 0 || s.config.QuietMode {
		return
	}
	fmt.Fprintln(s.config.Writer, s.colors.Colorize(title+":", clr))
	for _, item := range items {
		fmt.Fprintf(s.config.Writer, "  - %s\n", item)
	}
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
