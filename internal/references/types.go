// Package references cleans, ranks and summarizes the reference texts that
// ground post generation.
package references

// Defaults applied when a raw text omits its title or type.
const (
	DefaultTitle = "Sem título"
	DefaultType  = "Conteúdo Geral"
)

// RawText is a candidate reference as returned by a search backend.
type RawText struct {
	Title  string `json:"title"`
	Type   string `json:"type"`
	Source string `json:"index"`
	Body   string `json:"text"`
}

// Reference is a ranked reference text. Score is always within [0, 1].
type Reference struct {
	Title  string  `json:"title"`
	Type   string  `json:"type"`
	Source string  `json:"index"`
	Body   string  `json:"text"`
	Score  float64 `json:"relevance_score"`
}

// WithScore turns a raw text into a reference, clamping the score.
func (r RawText) WithScore(score float64) Reference {
	return Reference{
		Title:  r.Title,
		Type:   r.Type,
		Source: r.Source,
		Body:   r.Body,
		Score:  clamp(score),
	}
}

func clamp(score float64) float64 {
	switch {
	case score != score: // NaN
		return 0
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
