// Package search retrieves candidate reference texts and scores them
// against a topic using external services.
package search

import (
	"context"

	"github.com/tidwall/gjson"

	"github.com/jimdaga/unipost/internal/references"
)

// Searcher returns raw candidate references for a query. An empty slice with
// a nil error means the backend found nothing.
type Searcher interface {
	Search(ctx context.Context, query string) ([]references.RawText, error)
}

// TokenSource runs fn with a bearer token, renewing the token once when the
// backend rejects it.
type TokenSource interface {
	WithToken(ctx context.Context, fn func(token string) error) error
}

// ParseRawTexts accepts a JSON list, {"results": [...]} or
// {"metadados": [...]}. Any other shape yields an empty slice.
func ParseRawTexts(body []byte) []references.RawText {
	list := listOf(gjson.ParseBytes(body), "results", "metadados")

	texts := []references.RawText{}
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		texts = append(texts, references.RawText{
			Title:  item.Get("title").String(),
			Type:   firstString(item, "type", "origin"),
			Source: firstString(item, "index", "origin"),
			Body:   firstString(item, "text", "content"),
		})
		return true
	})
	return texts
}

// listOf returns doc when it is an array, or the first array found under
// one of keys.
func listOf(doc gjson.Result, keys ...string) gjson.Result {
	if doc.IsArray() {
		return doc
	}
	if doc.IsObject() {
		for _, k := range keys {
			if v := doc.Get(k); v.IsArray() {
				return v
			}
		}
	}
	return gjson.Result{}
}

func firstString(item gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
