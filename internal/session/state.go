// Package session holds per-user dashboard state between requests. The
// cookie only carries identity; everything else lives in Redis keyed by the
// session id.
package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jimdaga/unipost/internal/references"
)

// CachedPrefix marks state entries that may be dropped at any time.
const CachedPrefix = "cached_"

// LastGenerated is the most recent generation result of the session.
type LastGenerated struct {
	RunID              string                 `json:"run_id"`
	Theme              string                 `json:"theme"`
	Text               string                 `json:"text"`
	Platform           string                 `json:"platform"`
	Tone               string                 `json:"tone"`
	Creativity         string                 `json:"creativity"`
	Length             string                 `json:"length"`
	WordCount          int                    `json:"word_count"`
	TargetWordCount    int                    `json:"target_word_count"`
	References         []references.Reference `json:"references"`
	ApprovalDispatched bool                   `json:"approval_dispatched"`
	PostID             int64                  `json:"post_id,omitempty"`
	Approved           bool                   `json:"approved"`
	PersistenceWarning string                 `json:"persistence_warning,omitempty"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// Persisted reports whether the content API stored the post.
func (l *LastGenerated) Persisted() bool {
	return l.PostID > 0
}

// RegenerateRequest stages a new generation pre-filled from an earlier post.
type RegenerateRequest struct {
	Theme      string `json:"theme"`
	Platform   string `json:"platform"`
	Tone       string `json:"tone"`
	Creativity string `json:"creativity"`
	Length     string `json:"length"`
	OriginalID int64  `json:"original_id,omitempty"`
}

// PostFilters are the listing filters last used by the session.
type PostFilters struct {
	Status string `json:"status"`
	Theme  string `json:"theme"`
	Page   int    `json:"page"`
}

// State is the explicit per-session context passed to the pipeline and the
// handlers.
type State struct {
	ID          string                     `json:"id"`
	Username    string                     `json:"username"`
	LastResult  *LastGenerated             `json:"last_generated,omitempty"`
	Regenerate  *RegenerateRequest         `json:"regenerate_text_data,omitempty"`
	Filters     PostFilters                `json:"filters"`
	Preferences Preferences                `json:"preferences"`
	Cached      map[string]json.RawMessage `json:"cached,omitempty"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// NewState creates a fresh state with default preferences.
func NewState(id, username string) *State {
	return &State{
		ID:          id,
		Username:    username,
		Preferences: DefaultPreferences(),
		Filters:     PostFilters{Status: "all", Page: 1},
		Cached:      map[string]json.RawMessage{},
	}
}

// SetLastResult replaces the last result and drops any staged regeneration.
func (s *State) SetLastResult(r *LastGenerated) {
	s.LastResult = r
	s.Regenerate = nil
}

// ClearLastResult forgets the last result.
func (s *State) ClearLastResult() {
	s.LastResult = nil
}

// StageRegeneration stores a pre-filled request and clears the last result.
// The stored post itself is not touched.
func (s *State) StageRegeneration(r RegenerateRequest) {
	s.Regenerate = &r
	s.LastResult = nil
}

// PutCached stores v under a cached_ key.
func (s *State) PutCached(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if s.Cached == nil {
		s.Cached = map[string]json.RawMessage{}
	}
	s.Cached[cachedKey(key)] = raw
	return nil
}

// GetCached decodes the entry under key into v and reports whether it was
// present and readable.
func (s *State) GetCached(key string, v any) bool {
	raw, ok := s.Cached[cachedKey(key)]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// ClearCached removes every cached_ entry and returns how many were removed.
func (s *State) ClearCached() int {
	removed := 0
	for k := range s.Cached {
		if strings.HasPrefix(k, CachedPrefix) {
			delete(s.Cached, k)
			removed++
		}
	}
	return removed
}

// Reset returns the session to defaults, keeping only its identity.
func (s *State) Reset() {
	*s = *NewState(s.ID, s.Username)
}

func cachedKey(key string) string {
	if strings.HasPrefix(key, CachedPrefix) {
		return key
	}
	return CachedPrefix + key
}
