package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"printops-snapshot/internal/store"
)

// legacyCollectionsKey is where artifacts from older producers kept their
// collections
const legacyCollectionsKey = "data"

// ParseArtifact reads a JSON artifact into a generic document. Numbers are
// kept as json.Number so nothing is lost before checksum verification.
func ParseArtifact(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewStructuralError("failed to read artifact", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewStructuralError("artifact is empty", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, NewStructuralError("artifact is not valid JSON", err)
	}
	if dec.More() {
		return nil, NewStructuralError("artifact has trailing data after the JSON document", nil)
	}

	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, NewStructuralError("artifact must be a JSON object", nil).
			WithContext("type", fmt.Sprintf("%T", doc))
	}
	return raw, nil
}

// ValidateStructure performs the minimal shape check: a mapping whose
// collections object (or legacy "data" object) holds a printers list.
// It does not mutate raw.
func ValidateStructure(raw any) error {
	var errs ValidationErrors

	doc, ok := raw.(map[string]any)
	if !ok {
		errs.Add("", "artifact must be an object", fmt.Sprintf("%T", raw))
		return NewStructuralError("invalid artifact structure", errs)
	}

	collections, key := collectionsOf(doc)
	switch {
	case key == "":
		errs.Add("collections", "collections object is required", nil)
	case collections == nil:
		errs.Add(key, "must be an object", fmt.Sprintf("%T", doc[key]))
	default:
		printers, present := collections[store.CollectionPrinters]
		if !present {
			errs.Add(key+"."+store.CollectionPrinters, "printers collection is required", nil)
		} else if _, isList := printers.([]any); !isList {
			errs.Add(key+"."+store.CollectionPrinters, "printers collection must be a list", fmt.Sprintf("%T", printers))
		}
	}

	if _, ok := versionString(doc["version"]); !ok {
		errs.Add("version", "version must be a string", fmt.Sprintf("%T", doc["version"]))
	}

	if errs.HasErrors() {
		return NewStructuralError("invalid artifact structure", errs)
	}
	return nil
}

// IsValidStructure is ValidateStructure as a predicate
func IsValidStructure(raw any) bool {
	return ValidateStructure(raw) == nil
}

// collectionsOf returns the collections object and the key it was found
// under. key is empty when neither key exists.
func collectionsOf(doc map[string]any) (map[string]any, string) {
	for _, key := range []string{"collections", legacyCollectionsKey} {
		if v, ok := doc[key]; ok {
			m, _ := v.(map[string]any)
			return m, key
		}
	}
	return nil, ""
}

// ClassifyVersion reports whether snap can be imported and whether it must
// be migrated first
func ClassifyVersion(snap *Snapshot) VersionInfo {
	version := snap.Version
	if version == "" {
		version = OldestVersion
	}
	return classify(version)
}

// ClassifyRawVersion classifies the version of a parsed artifact
func ClassifyRawVersion(raw map[string]any) VersionInfo {
	version, ok := versionString(raw["version"])
	if !ok {
		return VersionInfo{Version: fmt.Sprintf("%v", raw["version"])}
	}
	return classify(version)
}

func classify(version string) VersionInfo {
	return VersionInfo{
		Version:        version,
		IsCompatible:   IsSupported(version),
		NeedsMigration: version != CurrentVersion,
	}
}

// Decode converts a structurally valid artifact document into a Snapshot.
// Legacy "data" collections are moved to Collections and a missing version
// becomes the oldest supported one.
func Decode(raw map[string]any) (*Snapshot, error) {
	doc := make(map[string]any, len(raw))
	for k, v := range raw {
		doc[k] = v
	}

	if _, hasCollections := doc["collections"]; !hasCollections {
		if legacy, ok := doc[legacyCollectionsKey]; ok {
			doc["collections"] = legacy
		}
	}
	delete(doc, legacyCollectionsKey)

	version, ok := versionString(doc["version"])
	if !ok {
		return nil, NewStructuralError("version must be a string", nil)
	}
	doc["version"] = version

	if md, ok := doc["metadata"].(map[string]any); ok {
		mdCopy := make(map[string]any, len(md))
		for k, v := range md {
			mdCopy[k] = v
		}
		if v, present := mdCopy["version"]; present {
			if s, ok := versionString(v); ok {
				mdCopy["version"] = s
			}
		}
		doc["metadata"] = mdCopy
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, NewStructuralError("failed to re-encode artifact", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, NewStructuralError("artifact does not match the snapshot shape", err)
	}

	if snap.Collections == nil {
		snap.Collections = map[string][]Record{}
	}
	if snap.Preferences == nil {
		snap.Preferences = map[string]any{}
	}
	return &snap, nil
}
