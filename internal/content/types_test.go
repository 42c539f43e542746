package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitiesFrom(t *testing.T) {
	caps := CapabilitiesFrom([]string{"texts.view_text", "texts.change_text", "auth.add_user"})

	assert.True(t, caps.Has(CapRead))
	assert.True(t, caps.Has(CapUpdate))
	assert.False(t, caps.Has(CapCreate))
	assert.False(t, caps.Has(CapRead|CapDelete))
	assert.Equal(t, []string{"read", "update"}, caps.Names())

	raw, err := json.Marshal(caps)
	assert.NoError(t, err)
	assert.JSONEq(t, `["read","update"]`, string(raw))

	assert.Empty(t, CapabilitiesFrom(nil).Names())
}

func TestFilterAndPage(t *testing.T) {
	posts := []Post{
		{ID: 1, Theme: "Energia Solar", IsApproved: true},
		{ID: 2, Theme: "Marketing digital"},
		{ID: 3, Theme: "energia eólica"},
		{ID: 4, Theme: "Energia Solar"},
	}

	pending := FilterPosts(posts, Filter{Status: StatusPending, Theme: "ENERGIA"})
	assert.Len(t, pending, 2)
	assert.Equal(t, int64(3), pending[0].ID)

	assert.Len(t, FilterPosts(posts, Filter{Status: StatusAll}), 4)

	page, pages := Page(posts, 2, 3)
	assert.Equal(t, 2, pages)
	assert.Len(t, page, 1)

	page, _ = Page(posts, 9, 3)
	assert.Equal(t, int64(4), page[0].ID)

	empty, pages := Page(nil, 1, 12)
	assert.Empty(t, empty)
	assert.Zero(t, pages)

	assert.Equal(t, int64(1), ThemeIndex(posts)["Energia Solar"])
}
