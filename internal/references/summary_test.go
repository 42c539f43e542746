package references

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucket(t *testing.T) {
	tests := []struct {
		score float64
		want  Relevance
	}{
		{1, RelevanceHigh},
		{0.7, RelevanceHigh},
		{0.69, RelevanceMedium},
		{0.4, RelevanceMedium},
		{0.39, RelevanceLow},
		{0, RelevanceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.score), "score %v", tt.score)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Reference{
		{Type: "blog", Score: 0.9},
		{Type: "news", Score: 0.5},
		{Type: "blog", Score: 0.1},
	})

	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.5, s.AverageScore, 1e-9)
	assert.Equal(t, 1, s.HighRelevance)
	assert.Equal(t, []string{"blog", "news"}, s.Types)

	empty := Summarize(nil)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.Types)
}

func TestDisplayTruncates(t *testing.T) {
	long := strings.Repeat("é", ExcerptRunes+10)
	refs := make([]Reference, 7)
	for i := range refs {
		refs[i] = Reference{Title: "t", Body: long, Score: 0.8}
	}

	items := Display(refs, DisplayLimit)
	assert.Len(t, items, DisplayLimit)
	assert.True(t, items[0].Truncated)
	assert.Len(t, []rune(items[0].Excerpt), ExcerptRunes)
	assert.Equal(t, RelevanceHigh, items[0].Relevance)

	assert.Len(t, Display(refs, PreviewLimit), PreviewLimit)
}
