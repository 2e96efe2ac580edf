// Package session keeps analyzed sessions in memory for the web API. Entries
// expire after a fixed time to live; nothing is persisted.
package session

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sant0-9/surasura/internal/errors"
	"github.com/sant0-9/surasura/internal/pipeline"
)

const DefaultTTL = time.Hour

// Store maps an original run ID to its session.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore creates a store whose entries live for ttl after their last save.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	purge := ttl / 6
	if purge < time.Second {
		purge = time.Second
	}
	return &Store{cache: cache.New(ttl, purge), ttl: ttl}
}

// Save stores an analyzed session under its original run ID and returns
// that ID.
func (s *Store) Save(sess *pipeline.Session) (string, error) {
	original := sess.Original()
	if original == nil {
		return "", errors.Wrap(errors.ErrNotAnalyzed, "save session")
	}
	s.cache.Set(original.ID, sess, cache.DefaultExpiration)
	return original.ID, nil
}

// Get returns the session for a run ID, refreshing its expiry.
func (s *Store) Get(id string) (*pipeline.Session, error) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, errors.Mark(errors.Newf("run %q not found", id), errors.ErrNotFound)
	}
	sess := x.(*pipeline.Session)
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Len counts stored sessions, expired ones not yet purged included.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}
