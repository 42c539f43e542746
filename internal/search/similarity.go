package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/jimdaga/unipost/internal/references"
)

// SimilarityScorer asks the embeddings API to score candidates against a
// topic. It implements references.Scorer.
type SimilarityScorer struct {
	baseURL    string
	httpClient *http.Client
	auth       TokenSource
	logger     *slog.Logger
}

// NewSimilarityScorer creates a scorer for the embeddings API at baseURL.
func NewSimilarityScorer(baseURL string, timeout time.Duration, auth TokenSource, logger *slog.Logger) *SimilarityScorer {
	return &SimilarityScorer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
		logger:     logger,
	}
}

type similarityText struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type similarityRequest struct {
	Query string           `json:"query"`
	Texts []similarityText `json:"texts"`
}

// Score sends the whole batch in one POST /embeddings/similarity/ call.
func (s *SimilarityScorer) Score(ctx context.Context, topic string, texts []references.RawText) ([]float64, error) {
	req := similarityRequest{Query: topic, Texts: make([]similarityText, len(texts))}
	for i, t := range texts {
		req.Texts[i] = similarityText{Title: t.Title, Text: t.Body}
	}

	var body []byte
	err := s.auth.WithToken(ctx, func(token string) error {
		var err error
		body, err = call(ctx, s.httpClient, token, http.MethodPost, s.baseURL+"/embeddings/similarity/", req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to score references: %w", err)
	}

	scores := ParseScores(body, len(texts))
	s.logger.Debug("similarity scoring finished", "candidate_count", len(texts))
	return scores, nil
}

// ParseScores reads a similarity response into a slice aligned with n
// candidates. Accepted shapes are a list of numbers in candidate order, or a
// list of {index, score|similarity_score} objects, either bare or under
// "results". Unscored candidates get -1.
func ParseScores(body []byte, n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = -1
	}

	list := listOf(gjson.ParseBytes(body), "results", "scores")
	position := 0
	list.ForEach(func(_, item gjson.Result) bool {
		idx := position
		var score gjson.Result
		switch {
		case item.Type == gjson.Number:
			score = item
		case item.IsObject():
			if v := item.Get("index"); v.Exists() {
				idx = int(v.Int())
			}
			score = item.Get("score")
			if !score.Exists() {
				score = item.Get("similarity_score")
			}
		}
		position++

		if idx >= 0 && idx < n && score.Exists() {
			scores[idx] = score.Float()
		}
		return true
	})
	return scores
}
