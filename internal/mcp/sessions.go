// ABOUTME: In-memory session store for the MCP bridge.
// ABOUTME: Sessions expire after idle TTL and the oldest is evicted at capacity.

package mcp

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultSessionTTL is how long an idle session stays valid.
	defaultSessionTTL = 30 * time.Minute

	// defaultMaxSessions caps the number of concurrent sessions.
	defaultMaxSessions = 1000
)

// session tracks an active MCP client session.
type session struct {
	id              string
	protocolVersion string
	createdAt       time.Time
}

// sessionEntry stores the last-seen timestamp and list element for a session.
type sessionEntry struct {
	sess     *session
	lastSeen time.Time
	element  *list.Element
}

// sessionStore manages active MCP sessions with idle expiry and a size cap.
// Uses a doubly-linked list in last-seen order for O(1) eviction.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	order    *list.List // session IDs, least recently seen at front
	ttl      time.Duration
	maxSize  int
	done     chan struct{}
	closed   bool
}

// newSessionStore creates a session store and starts its background cleanup
// goroutine. Call Close to stop it.
func newSessionStore(ttl time.Duration, maxSize int) *sessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if maxSize <= 0 {
		maxSize = defaultMaxSessions
	}
	s := &sessionStore{
		sessions: make(map[string]*sessionEntry),
		order:    list.New(),
		ttl:      ttl,
		maxSize:  maxSize,
		done:     make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// create registers a new session. If the store is at capacity, the least
// recently seen session is evicted to make room.
func (s *sessionStore) create(protocolVersion string) *session {
	sess := &session{
		id:              uuid.New().String(),
		protocolVersion: protocolVersion,
		createdAt:       time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.order.PushBack(sess.id)
	s.sessions[sess.id] = &sessionEntry{
		sess:     sess,
		lastSeen: time.Now(),
		element:  elem,
	}
	return sess
}

// get returns the session if it exists and has not idled out. A hit refreshes
// the session's last-seen time.
func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Since(entry.lastSeen) > s.ttl {
		s.order.Remove(entry.element)
		delete(s.sessions, id)
		return nil, false
	}

	entry.lastSeen = time.Now()
	s.order.MoveToBack(entry.element)
	return entry.sess, true
}

// delete removes a session, reporting whether it existed.
func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return false
	}
	s.order.Remove(entry.element)
	delete(s.sessions, id)
	return true
}

// evictOldest removes the least recently seen session. Must be called with
// mu held.
func (s *sessionStore) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}
	id, _ := front.Value.(string)
	s.order.Remove(front)
	delete(s.sessions, id)
}

// cleanup periodically removes idle sessions until Close is called.
func (s *sessionStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

// removeExpired drops every session past its idle TTL.
func (s *sessionStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.ttl {
			s.order.Remove(entry.element)
			delete(s.sessions, id)
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call multiple times.
func (s *sessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
