package references

import "sort"

// Relevance is the display bucket of a reference score.
type Relevance string

const (
	RelevanceHigh   Relevance = "Alta"
	RelevanceMedium Relevance = "Média"
	RelevanceLow    Relevance = "Baixa"
)

// Display limits for the result view and its compact preview.
const (
	DisplayLimit = 5
	PreviewLimit = 3
	ExcerptRunes = 300
)

// Bucket classifies a score: >= 0.7 high, >= 0.4 medium, otherwise low.
func Bucket(score float64) Relevance {
	switch {
	case score >= 0.7:
		return RelevanceHigh
	case score >= 0.4:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// Summary aggregates every reference used for a generation run.
type Summary struct {
	Count         int      `json:"count"`
	AverageScore  float64  `json:"average_score"`
	HighRelevance int      `json:"high_relevance"`
	Types         []string `json:"types"`
}

// Summarize computes count, average score, high-relevance count and the
// sorted distinct types of refs.
func Summarize(refs []Reference) Summary {
	s := Summary{Count: len(refs), Types: []string{}}
	if len(refs) == 0 {
		return s
	}

	types := make(map[string]struct{})
	var total float64
	for _, r := range refs {
		total += r.Score
		if Bucket(r.Score) == RelevanceHigh {
			s.HighRelevance++
		}
		types[r.Type] = struct{}{}
	}
	s.AverageScore = total / float64(len(refs))

	for t := range types {
		s.Types = append(s.Types, t)
	}
	sort.Strings(s.Types)
	return s
}

// DisplayItem is a reference prepared for the result view.
type DisplayItem struct {
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Source    string    `json:"index"`
	Excerpt   string    `json:"excerpt"`
	Truncated bool      `json:"truncated"`
	Score     float64   `json:"relevance_score"`
	Relevance Relevance `json:"relevance"`
}

// Display returns the first limit references with their bucket and a body
// excerpt. refs must already be sorted.
func Display(refs []Reference, limit int) []DisplayItem {
	top := Top(refs, limit)
	items := make([]DisplayItem, 0, len(top))
	for _, r := range top {
		excerpt, truncated := Truncate(r.Body, ExcerptRunes)
		items = append(items, DisplayItem{
			Title:     r.Title,
			Type:      r.Type,
			Source:    r.Source,
			Excerpt:   excerpt,
			Truncated: truncated,
			Score:     r.Score,
			Relevance: Bucket(r.Score),
		})
	}
	return items
}

// Truncate cuts s to at most n runes and reports whether it did.
func Truncate(s string, n int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= n {
		return s, false
	}
	return string(runes[:n]), true
}
