package generator

import (
	"regexp"
	"strings"
)

var leadingLabel = regexp.MustCompile(`(?i)^\s*(texto|post)\s*:\s*`)

// Clean trims model output and removes a leading "TEXTO:" label and
// wrapping quotes. It returns "" when nothing is left.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingLabel.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
