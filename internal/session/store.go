package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned by Lock while another request holds the session.
var ErrBusy = errors.New("session is busy")

const (
	keyPrefix = "session:"
	lockTTL   = 2 * time.Minute
)

// Store persists session state in Redis with a sliding TTL.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewStore creates a Store.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, now: time.Now}
}

// NewID returns a random session id.
func NewID() string {
	return uuid.NewString()
}

func stateKey(id string) string { return keyPrefix + id }
func lockKey(id string) string  { return keyPrefix + id + ":lock" }

// Load returns the state of id, or a fresh state when none is stored.
func (s *Store) Load(ctx context.Context, id, username string) (*State, error) {
	raw, err := s.rdb.Get(ctx, stateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(id, username), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return NewState(id, username), nil
	}
	if st.Cached == nil {
		st.Cached = map[string]json.RawMessage{}
	}
	if st.Preferences.ItemsPerPage == 0 {
		st.Preferences = DefaultPreferences()
	}
	return &st, nil
}

// Save writes st and refreshes its TTL.
func (s *Store) Save(ctx context.Context, st *State) error {
	st.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(st.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the state of id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, stateKey(id), lockKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Lock marks the session busy so that only one generation runs per
// session. The returned function releases the lock.
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, lockKey(id), token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		// Only release our own lock; it may have expired and been retaken.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := s.rdb.Get(unlockCtx, lockKey(id)).Result(); err == nil && v == token {
			s.rdb.Del(unlockCtx, lockKey(id))
		}
	}, nil
}
