package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimdaga/unipost/internal/logging"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1/", 5*time.Second, logging.Discard())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/authentication/token/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "ana" || r.PostForm.Get("password") != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access":"tok","refresh":"r"}`))
	})

	token, err := c.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = c.Login(context.Background(), "ana", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPermissionsShapes(t *testing.T) {
	for name, body := range map[string]string{
		"list":   `["texts.view_text","texts.add_text"]`,
		"object": `{"permissions":["texts.view_text","texts.add_text"]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				_, _ = w.Write([]byte(body))
			})

			perms, err := c.Permissions(context.Background(), "tok")
			require.NoError(t, err)
			assert.Equal(t, []string{"texts.view_text", "texts.add_text"}, perms)
		})
	}
}

func TestCreatePostExpectsCreated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var p NewPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.False(t, p.IsApproved)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Post{ID: 7, Theme: p.Theme, Platform: p.Platform, Content: p.Content})
	})

	post, err := c.CreatePost(context.Background(), "tok", NewPost{Theme: "t", Platform: "LKN", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), post.ID)
}

func TestApproveThenReject(t *testing.T) {
	approved := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/texts/3/", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)
		var patch map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		approved = patch["is_approved"]
		_ = json.NewEncoder(w).Encode(Post{ID: 3, IsApproved: approved})
	})

	post, err := c.ApprovePost(context.Background(), "tok", 3)
	require.NoError(t, err)
	assert.True(t, post.IsApproved)

	post, err = c.RejectPost(context.Background(), "tok", 3)
	require.NoError(t, err)
	assert.False(t, post.IsApproved)
	assert.Equal(t, StatusPending, StatusOf(*post))
}

func TestWritesAcceptNoContent(t *testing.T) {
	stored := Post{ID: 3, Theme: "solar", Content: "old"}
	var gets atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/texts/3/", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			gets.Add(1)
			_ = json.NewEncoder(w).Encode(stored)
		case http.MethodPatch:
			var patch map[string]bool
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			stored.IsApproved = patch["is_approved"]
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPut:
			var u PostUpdate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
			stored.Content = u.Content
			w.WriteHeader(http.StatusNoContent)
		}
	})

	post, err := c.ApprovePost(context.Background(), "tok", 3)
	require.NoError(t, err)
	assert.True(t, post.IsApproved)

	post, err = c.RejectPost(context.Background(), "tok", 3)
	require.NoError(t, err)
	assert.False(t, post.IsApproved)

	post, err = c.UpdatePost(context.Background(), "tok", 3, PostUpdate{Theme: "solar", Content: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", post.Content)
	assert.Equal(t, int32(3), gets.Load())
}

func TestListPostsPaginatedEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"results":[{"id":1,"theme":"solar","is_approved":true}]}`))
	})

	posts, err := c.ListPosts(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "solar", posts[0].Theme)
}

func TestStatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/texts/404/":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	})

	_, err := c.GetPost(context.Background(), "tok", 404)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetPost(context.Background(), "tok", 1)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := token.SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	assert.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	assert.False(t, TokenExpired("opaque-token", now))
}

func TestServiceAuthRetriesOnceOnUnauthorized(t *testing.T) {
	var logins atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		_, _ = w.Write([]byte(`{"access":"svc"}`))
	})
	auth := NewServiceAuth(c, "svc", "pw")

	calls := 0
	err := auth.WithToken(context.Background(), func(token string) error {
		calls++
		if calls == 1 {
			return ErrUnauthorized
		}
		assert.Equal(t, "svc", token)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(2), logins.Load())
}

func TestServiceAuthWithoutCredentials(t *testing.T) {
	auth := NewServiceAuth(NewClient("http://unused", time.Second, logging.Discard()), "", "")
	_, err := auth.Token(context.Background())
	assert.Error(t, err)
}
