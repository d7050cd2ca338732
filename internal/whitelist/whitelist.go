// Package whitelist restricts which paths the FUSE bridge is allowed
// to send mutating remote requests for (spec.md §6, "--writable-whitelist").
// With no patterns configured, everything is writable — the whitelist
// is an opt-in restriction, not a default-deny gate.
package whitelist

import "path/filepath"

// Whitelist matches a display path against a fixed set of shell glob
// patterns (filepath.Match syntax: *, ?, [...]).
type Whitelist struct {
	patterns []string
}

// New builds a Whitelist from the raw --writable-whitelist patterns.
// A nil or empty slice means unrestricted.
func New(patterns []string) *Whitelist {
	return &Whitelist{patterns: patterns}
}

// Allows reports whether a write to displayPath is permitted.
func (w *Whitelist) Allows(displayPath string) bool {
	if len(w.patterns) == 0 {
		return true
	}
	for _, p := range w.patterns {
		if ok, err := filepath.Match(p, displayPath); err == nil && ok {
			return true
		}
	}
	return false
}
