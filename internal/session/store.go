// Package session holds the in-memory binding between chat senders and their
// Supabase sessions. Nothing here is persisted: a restart logs everyone out.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"

	"github.com/ruzziq8-cell/buzzlab/internal/models"
	"github.com/ruzziq8-cell/buzzlab/internal/supabase"
)

// Session binds one chat sender to an authenticated backend session.
type Session struct {
	SenderID    string
	AccessToken string
	User        supabase.AuthUser

	// LastTasks is the snapshot of the most recent !list result, used to
	// resolve positional references like "!done 2". Replaced wholesale on
	// every !list; an entry is removed when !done succeeds so later indices
	// shift correctly. Listing again refreshes it.
	LastTasks []models.Task
}

// clone copies the session, including the LastTasks backing array, so two
// handlers holding the same sender's session never share mutable memory.
func (s *Session) clone() *Session {
	c := *s
	if s.LastTasks != nil {
		c.LastTasks = make([]models.Task, len(s.LastTasks))
		copy(c.LastTasks, s.LastTasks)
	}
	return &c
}

// Store is the session table. Entries evict when the access token expires, so
// a dead token never answers a Get. Set and Get exchange copies: concurrent
// handlers for the same sender each work on a private session, and Set is the
// only way a change becomes visible. Two racing commands resolve to
// last-write-wins, never to a shared-memory race.
type Store struct {
	sessions   *cache.Cache
	defaultTTL time.Duration
}

// NewStore creates a session store. defaultTTL applies when a token's exp
// claim cannot be read.
func NewStore(defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Store{
		sessions:   cache.New(defaultTTL, 10*time.Minute),
		defaultTTL: defaultTTL,
	}
}

// Set replaces any existing session for the sender. The entry lives until the
// access token's exp claim; Supabase signed the token, so the claim is only
// read here to schedule eviction, never to authorize anything.
func (s *Store) Set(senderID string, sess *Session) {
	s.sessions.Set(senderID, sess.clone(), s.ttlFor(sess.AccessToken))
}

// Get returns a copy of the sender's session, or nil if none (or it expired).
// Mutations to the copy are invisible until published with Set.
func (s *Store) Get(senderID string) *Session {
	if value, ok := s.sessions.Get(senderID); ok {
		return value.(*Session).clone()
	}
	return nil
}

// Delete removes the sender's session. Reports whether one existed.
func (s *Store) Delete(senderID string) bool {
	_, existed := s.sessions.Get(senderID)
	s.sessions.Delete(senderID)
	return existed
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return s.sessions.ItemCount()
}

// All returns copies of every live session. Used by the session-scoped
// reminder strategy, which can only see tasks of users who are currently
// logged in.
func (s *Store) All() []*Session {
	items := s.sessions.Items()
	sessions := make([]*Session, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Object.(*Session).clone())
	}
	return sessions
}

func (s *Store) ttlFor(accessToken string) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return s.defaultTTL
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return s.defaultTTL
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}
