package main

import (
	"path"
	"strings"
)

// isBotName reports whether a player name matches the configured bot pattern.
// Patterns containing glob metacharacters (*, ?, [) are matched against the
// whole name; anything else falls back to substring containment, which is how
// older deployments configured it. Both modes are case-insensitive.
func isBotName(name, pattern string) bool {
	if pattern == "" {
		return false
	}
	nameL := strings.ToLower(name)
	patternL := strings.ToLower(pattern)
	if strings.ContainsAny(patternL, "*?[") {
		ok, err := path.Match(patternL, nameL)
		return err == nil && ok
	}
	return strings.Contains(nameL, patternL)
}
