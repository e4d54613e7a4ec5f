package display

import (
	"os"
	"strings"
)

// Icon has a Unicode glyph and an ASCII fallback
type Icon struct {
	Unicode string
	ASCII   string
}

var icons = map[string]Icon{
	"success":  {Unicode: "✔", ASCII: "[OK]"},
	"error":    {Unicode: "✘", ASCII: "[ERR]"},
	"warning":  {Unicode: "⚠", ASCII: "[WARN]"},
	"info":     {Unicode: "ℹ", ASCII: "[INFO]"},
	"archive":  {Unicode: "▣", ASCII: "[A]"},
	"snapshot": {Unicode: "◆", ASCII: "[S]"},
	"arrow":    {Unicode: "→", ASCII: "->"},
}

// detectUnicodeSupport checks the locale; NO_UNICODE and FORCE_UNICODE override it
func detectUnicodeSupport() bool {
	if os.Getenv("FORCE_UNICODE") != "" {
		return true
	}
	if os.Getenv("NO_UNICODE") != "" {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return strings.Contains(strings.ToUpper(v), "UTF")
		}
	}
	return false
}

// renderIcon returns the icon glyph, or "" for an unknown name
func renderIcon(name string, unicode bool) string {
	icon, ok := icons[name]
	if !ok {
		return ""
	}
	if unicode {
		return icon.Unicode
	}
	return icon.ASCII
}
