package references

import (
	"context"
	"sort"
)

// Scorer asks the similarity service to score every candidate against the
// topic in a single call. The returned slice is aligned with texts; a
// missing score is reported as a negative value.
type Scorer interface {
	Score(ctx context.Context, topic string, texts []RawText) ([]float64, error)
}

// Ranker adapts similarity scores into ordered references.
type Ranker struct {
	scorer Scorer
}

// NewRanker creates a Ranker backed by scorer.
func NewRanker(scorer Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// Rank scores texts against topic and returns them sorted by descending
// score, ties kept in discovery order. Texts the service did not score are
// left out.
func (r *Ranker) Rank(ctx context.Context, topic string, texts []RawText) ([]Reference, error) {
	if len(texts) == 0 {
		return []Reference{}, nil
	}

	scores, err := r.scorer.Score(ctx, topic, texts)
	if err != nil {
		return nil, err
	}

	refs := make([]Reference, 0, len(texts))
	for i, t := range texts {
		if i >= len(scores) || scores[i] < 0 {
			continue
		}
		refs = append(refs, t.WithScore(scores[i]))
	}

	SortByScore(refs)
	return refs, nil
}

// SortByScore orders refs by descending score in place. Equal scores keep
// their relative order.
func SortByScore(refs []Reference) {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Score > refs[j].Score
	})
}

// Top returns at most n leading references.
func Top(refs []Reference, n int) []Reference {
	if n < 0 {
		n = 0
	}
	if len(refs) <= n {
		return refs
	}
	return refs[:n]
}
