package references

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MinBodyLength is the shortest body, in characters, kept after cleaning.
const MinBodyLength = 20

// Normalizer strips markup and noise from raw search results.
type Normalizer struct {
	policy *bluemonday.Policy
}

// NewNormalizer creates a Normalizer that removes every HTML element.
func NewNormalizer() *Normalizer {
	return &Normalizer{policy: bluemonday.StrictPolicy()}
}

// Normalize cleans each text, fills in default title and type, and drops
// texts that are too short or duplicate an earlier body. Discovery order is
// preserved. The result is never nil.
func (n *Normalizer) Normalize(texts []RawText) []RawText {
	out := make([]RawText, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))

	for _, t := range texts {
		body := n.clean(t.Body)
		if len([]rune(body)) < MinBodyLength {
			continue
		}
		key := strings.ToLower(body)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		title := n.clean(t.Title)
		if title == "" {
			title = DefaultTitle
		}
		kind := strings.TrimSpace(t.Type)
		if kind == "" {
			kind = DefaultType
		}
		source := strings.TrimSpace(t.Source)
		if source == "" {
			source = "unknown"
		}

		out = append(out, RawText{Title: title, Type: kind, Source: source, Body: body})
	}

	return out
}

func (n *Normalizer) clean(s string) string {
	s = n.policy.Sanitize(s)
	// Sanitize escapes entities; the prompt wants plain text.
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
