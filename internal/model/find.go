package model

import (
	"fmt"
	"strings"
)

// AmbiguousMatchError reports a fuzzy pattern that matched more than one
// branch at the same precedence.
type AmbiguousMatchError struct {
	Pattern string
	Matches []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("pattern '%s' matches multiple branches: %s",
		e.Pattern, strings.Join(e.Matches, ", "))
}

// Find resolves a fuzzy pattern to one tracked branch. Matching is
// case-insensitive; an exact match beats a prefix match beats a substring
// match. Ties within the winning precedence are surfaced, not guessed.
func (t *Tree) Find(pattern string) (string, error) {
	lowered := strings.ToLower(pattern)
	var exact, prefix, substring []string
	for _, name := range t.Names() {
		candidate := strings.ToLower(name)
		switch {
		case candidate == lowered:
			exact = append(exact, name)
		case strings.HasPrefix(candidate, lowered):
			prefix = append(prefix, name)
		case strings.Contains(candidate, lowered):
			substring = append(substring, name)
		}
	}
	for _, matches := range [][]string{exact, prefix, substring} {
		if len(matches) == 1 {
			return matches[0], nil
		}
		if len(matches) > 1 {
			return "", &AmbiguousMatchError{Pattern: pattern, Matches: matches}
		}
	}
	return "", fmt.Errorf("no tracked branch matches '%s'", pattern)
}
