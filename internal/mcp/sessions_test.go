// ABOUTME: Tests for the MCP session store.
// ABOUTME: Covers lookup, idle expiry, capacity eviction, and deletion.

package mcp

import (
	"testing"
	"time"
)

func newTestSessionStore(t *testing.T, ttl time.Duration, maxSize int) *sessionStore {
	t.Helper()
	s := newSessionStore(ttl, maxSize)
	t.Cleanup(s.Close)
	return s
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	s := newTestSessionStore(t, time.Minute, 10)

	sess := s.create("2025-11-25")
	if sess.id == "" {
		t.Fatal("create() returned session with empty id")
	}
	if sess.protocolVersion != "2025-11-25" {
		t.Errorf("protocolVersion = %q, want %q", sess.protocolVersion, "2025-11-25")
	}

	got, ok := s.get(sess.id)
	if !ok {
		t.Fatal("get() did not find created session")
	}
	if got.id != sess.id {
		t.Errorf("get() id = %q, want %q", got.id, sess.id)
	}

	if _, ok := s.get("no-such-session"); ok {
		t.Error("get() found a session that was never created")
	}
}

func TestSessionStore_IdleExpiry(t *testing.T) {
	s := newTestSessionStore(t, 10*time.Millisecond, 10)

	sess := s.create("2025-11-25")
	time.Sleep(25 * time.Millisecond)

	if _, ok := s.get(sess.id); ok {
		t.Error("get() returned a session past its idle TTL")
	}
}

func TestSessionStore_GetRefreshesIdle(t *testing.T) {
	s := newTestSessionStore(t, 40*time.Millisecond, 10)

	sess := s.create("2025-11-25")
	for i := 0; i < 3; i++ {
		time.Sleep(20 * time.Millisecond)
		if _, ok := s.get(sess.id); !ok {
			t.Fatalf("get() lost session on touch %d", i)
		}
	}
}

func TestSessionStore_CapacityEvictsOldest(t *testing.T) {
	s := newTestSessionStore(t, time.Minute, 2)

	first := s.create("2025-11-25")
	second := s.create("2025-11-25")
	third := s.create("2025-11-25")

	if _, ok := s.get(first.id); ok {
		t.Error("oldest session survived eviction at capacity")
	}
	if _, ok := s.get(second.id); !ok {
		t.Error("second session was evicted unexpectedly")
	}
	if _, ok := s.get(third.id); !ok {
		t.Error("newest session was evicted unexpectedly")
	}
}

func TestSessionStore_Delete(t *testing.T) {
	s := newTestSessionStore(t, time.Minute, 10)

	sess := s.create("2025-11-25")
	if !s.delete(sess.id) {
		t.Error("delete() = false for existing session")
	}
	if s.delete(sess.id) {
		t.Error("delete() = true for already deleted session")
	}
	if _, ok := s.get(sess.id); ok {
		t.Error("get() found deleted session")
	}
}

func TestSessionStore_CloseIsIdempotent(t *testing.T) {
	s := newSessionStore(time.Minute, 10)
	s.Close()
	s.Close()
}
