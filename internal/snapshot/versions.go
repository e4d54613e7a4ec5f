package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"printops-snapshot/internal/store"
)

// Schema versions in release order
const (
	Version10 = "1.0"
	Version11 = "1.1"
	Version12 = "1.2"
	Version20 = "2.0"

	CurrentVersion = Version20
	OldestVersion  = Version10
)

// SupportedVersions is the whitelist of versions that can be imported
var SupportedVersions = []string{Version10, Version11, Version12, Version20}

// Preference keys carried by a snapshot
const (
	PrefLastReportSelection = "lastReportSelection"
	PrefDefaultPrinterTab   = "defaultPrinterTab"
	PrefCopiedTicketIDs     = "copiedTicketIds"
)

// collectionsIntroduced lists the collections each version added
var collectionsIntroduced = map[string][]string{
	Version10: {
		store.CollectionPrinters,
		store.CollectionInventory,
		store.CollectionOrders,
		store.CollectionChanges,
		store.CollectionUsers,
		store.CollectionTonerModels,
	},
	Version11: {
		store.CollectionLoans,
		store.CollectionEmptyToners,
		store.CollectionOperators,
	},
	Version12: {
		store.CollectionFuserModels,
		store.CollectionPrinterFusers,
	},
	Version20: {
		store.CollectionTickets,
		store.CollectionTicketTemplates,
	},
}

var preferencesIntroduced = map[string][]string{
	Version10: {PrefLastReportSelection},
	Version12: {PrefDefaultPrinterTab},
	Version20: {PrefCopiedTicketIDs},
}

// IsSupported reports whether version is in the whitelist
func IsSupported(version string) bool {
	return versionIndex(version) >= 0
}

func versionIndex(version string) int {
	for i, v := range SupportedVersions {
		if v == version {
			return i
		}
	}
	return -1
}

// CollectionsFor returns the collections present in a snapshot of version,
// in the fixed enumeration order.
func CollectionsFor(version string) []string {
	idx := versionIndex(version)
	if idx < 0 {
		return nil
	}
	present := map[string]bool{}
	for _, v := range SupportedVersions[:idx+1] {
		for _, c := range collectionsIntroduced[v] {
			present[c] = true
		}
	}

	var out []string
	for _, c := range store.Collections() {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

// PreferenceKeysFor returns the preference keys carried by version
func PreferenceKeysFor(version string) []string {
	idx := versionIndex(version)
	if idx < 0 {
		return nil
	}
	var out []string
	for _, v := range SupportedVersions[:idx+1] {
		out = append(out, preferencesIntroduced[v]...)
	}
	return out
}

// PreferenceDefault returns the value a missing preference key takes
func PreferenceDefault(key string) any {
	switch key {
	case PrefLastReportSelection, PrefCopiedTicketIDs:
		return []any{}
	default:
		return nil
	}
}

// versionString normalizes a decoded "version" value. Absent means the
// oldest version.
func versionString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return OldestVersion, true
	case string:
		if t == "" {
			return OldestVersion, true
		}
		return t, true
	case json.Number:
		return normalizeNumericVersion(t.String()), true
	case float64:
		return normalizeNumericVersion(fmt.Sprintf("%g", t)), true
	default:
		return "", false
	}
}

// normalizeNumericVersion turns a bare 2 into "2.0"
func normalizeNumericVersion(s string) string {
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
