package posts

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jimdaga/unipost/internal/content"
	"github.com/jimdaga/unipost/internal/session"
)

const cachedPostsKey = "posts"

// List returns one page of the user's posts. Query filters override, and
// are remembered as, the session filters. With auto_refresh off the
// listing is served from the session until something invalidates it.
func (h *Handlers) List(c *gin.Context) {
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	filters := st.Filters
	if v, ok := c.GetQuery("status"); ok {
		filters.Status = v
	}
	if v, ok := c.GetQuery("theme"); ok {
		filters.Theme = v
	}
	if v, ok := c.GetQuery("page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Page = n
		}
	}
	status := content.Status(strings.ToLower(filters.Status))
	switch status {
	case "":
		status = content.StatusAll
	case content.StatusAll, content.StatusApproved, content.StatusPending:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be all, approved or pending"})
		return
	}
	filters.Status = string(status)

	var all []content.Post
	cached := !st.Preferences.AutoRefresh && st.GetCached(cachedPostsKey, &all)
	if !cached {
		ctx, cancel := apiContext(c, st)
		defer cancel()

		var err error
		all, err = h.Posts.ListPosts(ctx, id.Token)
		if err != nil {
			h.writeAPIError(c, "list_posts", err)
			return
		}
		if !st.Preferences.AutoRefresh {
			if err := st.PutCached(cachedPostsKey, all); err != nil {
				h.Logger.Warn("failed to cache post listing", "error", err)
			}
		}
	}

	matched := content.FilterPosts(all, content.Filter{Status: status, Theme: filters.Theme})
	page, pages := content.Page(matched, filters.Page, st.Preferences.ItemsPerPage)
	if filters.Page < 1 {
		filters.Page = 1
	}
	if pages > 0 && filters.Page > pages {
		filters.Page = pages
	}

	st.Filters = filters
	h.saveState(c, st)

	c.JSON(http.StatusOK, gin.H{
		"posts":    page,
		"page":     filters.Page,
		"pages":    pages,
		"per_page": st.Preferences.ItemsPerPage,
		"total":    len(matched),
		"filters":  filters,
		"themes":   content.ThemeIndex(all),
		"cached":   cached,
	})
}

// Get returns one post.
func (h *Handlers) Get(c *gin.Context) {
	postID, ok := parseID(c)
	if !ok {
		return
	}
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	ctx, cancel := apiContext(c, st)
	defer cancel()

	post, err := h.Posts.GetPost(ctx, id.Token, postID)
	if err != nil {
		h.writeAPIError(c, "get_post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "status": content.StatusOf(*post)})
}

type updateRequest struct {
	Theme      string `json:"theme" binding:"required"`
	Platform   string `json:"platform"`
	Content    string `json:"content" binding:"required"`
	IsApproved bool   `json:"is_approved"`
}

// Update replaces a post.
func (h *Handlers) Update(c *gin.Context) {
	postID, ok := parseID(c)
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme and content are required"})
		return
	}
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	platform := strings.ToUpper(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = content.GenericPlatform
	}

	ctx, cancel := apiContext(c, st)
	defer cancel()

	post, err := h.Posts.UpdatePost(ctx, id.Token, postID, content.PostUpdate{
		Theme:      strings.TrimSpace(req.Theme),
		Platform:   platform,
		Content:    req.Content,
		IsApproved: req.IsApproved,
	})
	if err != nil {
		h.writeAPIError(c, "update_post", err)
		return
	}

	st.ClearCached()
	h.saveState(c, st)
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// Approve marks a post approved.
func (h *Handlers) Approve(c *gin.Context) {
	h.review(c, true)
}

// Reject marks a post not approved.
func (h *Handlers) Reject(c *gin.Context) {
	h.review(c, false)
}

func (h *Handlers) review(c *gin.Context, approve bool) {
	postID, ok := parseID(c)
	if !ok {
		return
	}
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	ctx, cancel := apiContext(c, st)
	defer cancel()

	review := h.Reviewer.Reject
	if approve {
		review = h.Reviewer.Approve
	}
	post, err := review(ctx, id.Token, postID)
	if err != nil {
		h.writeAPIError(c, "review_post", err)
		return
	}

	if st.LastResult != nil && st.LastResult.PostID == postID {
		st.LastResult.Approved = post.IsApproved
	}
	st.ClearCached()
	h.saveState(c, st)
	c.JSON(http.StatusOK, gin.H{"post": post, "status": content.StatusOf(*post)})
}

// Regenerate stages a new generation pre-filled from a stored post.
// Options in the body override the post's values.
func (h *Handlers) Regenerate(c *gin.Context) {
	postID, ok := parseID(c)
	if !ok {
		return
	}
	var opts session.RegenerateRequest
	if err := c.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	ctx, cancel := apiContext(c, st)
	defer cancel()

	post, err := h.Posts.GetPost(ctx, id.Token, postID)
	if err != nil {
		h.writeAPIError(c, "get_post", err)
		return
	}

	staged := session.RegenerateRequest{
		Theme:      post.Theme,
		Platform:   post.Platform,
		Tone:       opts.Tone,
		Creativity: opts.Creativity,
		Length:     opts.Length,
		OriginalID: post.ID,
	}
	if opts.Platform != "" {
		staged.Platform = opts.Platform
	}
	if staged.Platform == content.GenericPlatform {
		staged.Platform = ""
	}

	st.StageRegeneration(staged)
	h.saveState(c, st)
	c.JSON(http.StatusAccepted, gin.H{"regenerate": st.Regenerate})
}

// Delete removes a post.
func (h *Handlers) Delete(c *gin.Context) {
	postID, ok := parseID(c)
	if !ok {
		return
	}
	id, st, ok := h.loadState(c)
	if !ok {
		return
	}

	ctx, cancel := apiContext(c, st)
	defer cancel()

	if err := h.Posts.DeletePost(ctx, id.Token, postID); err != nil {
		h.writeAPIError(c, "delete_post", err)
		return
	}

	if st.LastResult != nil && st.LastResult.PostID == postID {
		st.ClearLastResult()
	}
	st.ClearCached()
	h.saveState(c, st)
	c.Status(http.StatusNoContent)
}
