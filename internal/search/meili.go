package search

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/meilisearch/meilisearch-go"

	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/references"
)

// SourceApprovedPosts tags references that come from approved posts.
const SourceApprovedPosts = "approved_posts"

// MeiliSearcher serves references from a Meilisearch index fed with
// approved posts.
type MeiliSearcher struct {
	index  meilisearch.IndexManager
	limit  int64
	logger *slog.Logger
}

// NewMeiliClient connects to a Meilisearch host.
func NewMeiliClient(host, apiKey string) meilisearch.ServiceManager {
	return meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
}

// NewMeiliSearcher creates a searcher over indexName.
func NewMeiliSearcher(client meilisearch.ServiceManager, indexName string, logger *slog.Logger) *MeiliSearcher {
	return &MeiliSearcher{
		index:  client.Index(indexName),
		limit:  20,
		logger: logger,
	}
}

// Search runs a full-text query against the index.
func (m *MeiliSearcher) Search(ctx context.Context, query string) ([]references.RawText, error) {
	result, err := m.index.Search(query, &meilisearch.SearchRequest{
		Query: query,
		Limit: m.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search reference index: %w", err)
	}

	texts := make([]references.RawText, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		texts = append(texts, references.RawText{
			Title:  stringField(hitMap, "title"),
			Type:   stringField(hitMap, "type"),
			Source: SourceApprovedPosts,
			Body:   stringField(hitMap, "text"),
		})
	}

	m.logger.Debug("reference index search finished", "search_query", query, "raw_count", len(texts))
	return texts, nil
}

// IndexPosts adds or replaces posts in the reference index. Indexing is
// asynchronous on the Meilisearch side.
func (m *MeiliSearcher) IndexPosts(ctx context.Context, posts []content.Post) error {
	if len(posts) == 0 {
		return nil
	}

	docs := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		docs = append(docs, map[string]interface{}{
			"id":       strconv.FormatInt(p.ID, 10),
			"title":    p.Theme,
			"type":     p.Platform,
			"text":     p.Content,
			"approved": p.IsApproved,
		})
	}

	task, err := m.index.AddDocuments(docs)
	if err != nil {
		return fmt.Errorf("failed to index posts: %w", err)
	}

	m.logger.Info("reference documents queued", "count", len(docs), "task_uid", task.TaskUID)
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
