// Package content is the client for the external content API that owns
// posts, user accounts and permissions.
package content

import "strings"

// GenericPlatform is stored when a post is generated without a platform.
const GenericPlatform = "GENERIC"

// Post is a post record as stored by the content API.
type Post struct {
	ID         int64  `json:"id"`
	Theme      string `json:"theme"`
	Platform   string `json:"platform"`
	Content    string `json:"content"`
	IsApproved bool   `json:"is_approved"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// NewPost is the payload of a create call.
type NewPost struct {
	Theme      string `json:"theme"`
	Platform   string `json:"platform"`
	Content    string `json:"content"`
	IsApproved bool   `json:"is_approved"`
}

// PostUpdate is the payload of a full update.
type PostUpdate struct {
	Theme      string `json:"theme"`
	Platform   string `json:"platform"`
	Content    string `json:"content"`
	IsApproved bool   `json:"is_approved"`
}

// Status is the display state of a post. Only the approval flag is stored;
// "pending" covers both never-approved and rejected posts.
type Status string

const (
	StatusAll      Status = "all"
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
)

// StatusOf returns the display state of p.
func StatusOf(p Post) Status {
	if p.IsApproved {
		return StatusApproved
	}
	return StatusPending
}

// Filter narrows a post listing.
type Filter struct {
	Status Status
	Theme  string
}

// FilterPosts keeps the posts matching f, in their original order. Theme
// matching is a case-insensitive substring match.
func FilterPosts(posts []Post, f Filter) []Post {
	theme := strings.ToLower(strings.TrimSpace(f.Theme))
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if f.Status == StatusApproved && !p.IsApproved {
			continue
		}
		if f.Status == StatusPending && p.IsApproved {
			continue
		}
		if theme != "" && !strings.Contains(strings.ToLower(p.Theme), theme) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Page returns the 1-based page of posts and the total number of pages.
// Out of range pages are clamped.
func Page(posts []Post, page, perPage int) ([]Post, int) {
	if perPage <= 0 {
		perPage = len(posts)
		if perPage == 0 {
			perPage = 1
		}
	}
	pages := (len(posts) + perPage - 1) / perPage
	if pages == 0 {
		return []Post{}, 0
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end], pages
}

// ThemeIndex maps each theme to the id of its first post.
func ThemeIndex(posts []Post) map[string]int64 {
	idx := make(map[string]int64, len(posts))
	for _, p := range posts {
		if _, ok := idx[p.Theme]; !ok {
			idx[p.Theme] = p.ID
		}
	}
	return idx
}
