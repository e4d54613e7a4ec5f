package application

import (
	"io"
	"sort"
	"time"

	"printops-snapshot/internal/snapshot"
)

// InspectReport describes an artifact without importing it
type InspectReport struct {
	Version        snapshot.VersionInfo `json:"version"`
	ExportedAt     time.Time            `json:"exportedAt,omitempty"`
	Metadata       snapshot.Metadata    `json:"metadata"`
	Checksum       string               `json:"checksum,omitempty"`
	ChecksumValid  bool                 `json:"checksumValid"`
	Collections    map[string]int       `json:"collections"`
	TotalRecords   int                  `json:"totalRecords"`
	PreferenceKeys []string             `json:"preferenceKeys"`
	Problems       []string             `json:"problems"`
}

// Importable reports whether ImportArtifact would get past validation
func (r *InspectReport) Importable() bool {
	return len(r.Problems) == 0
}

// Inspect parses, validates and verifies an artifact and summarizes its
// content. Nothing is written.
func (app *Application) Inspect(r io.Reader) (*InspectReport, error) {
	raw, err := snapshot.ParseArtifact(r)
	if err != nil {
		return nil, err
	}

	report := &InspectReport{Collections: map[string]int{}, PreferenceKeys: []string{}, Problems: []string{}}
	if err := snapshot.ValidateStructure(raw); err != nil {
		report.Problems = append(report.Problems, err.Error())
		return report, nil
	}

	report.Version = snapshot.ClassifyRawVersion(raw)
	if !report.Version.IsCompatible {
		report.Problems = append(report.Problems, "unsupported snapshot version "+report.Version.Version)
	}

	report.Checksum, _ = raw["checksum"].(string)
	if err := app.checksummer.VerifyRaw(raw); err != nil {
		report.Problems = append(report.Problems, err.Error())
	} else {
		report.ChecksumValid = true
	}

	snap, err := snapshot.Decode(raw)
	if err != nil {
		report.Problems = append(report.Problems, err.Error())
		return report, nil
	}
	report.ExportedAt = snap.ExportedAt
	report.Metadata = snap.Metadata
	for name, records := range snap.Collections {
		report.Collections[name] = len(records)
		report.TotalRecords += len(records)
	}
	for key := range snap.Preferences {
		report.PreferenceKeys = append(report.PreferenceKeys, key)
	}
	sort.Strings(report.PreferenceKeys)
	return report, nil
}
