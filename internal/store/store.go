// ABOUTME: Store interfaces and shared errors for the persistence layer.
// ABOUTME: Consumers depend on these interfaces, not on SQLiteStore directly.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/2389/spellbook/internal/catalog"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// CallStore records and queries the tool invocation audit log.
type CallStore interface {
	catalog.AuditRecorder
	ListCalls(ctx context.Context, filter CallFilter) ([]*Call, error)
}

// TokenStore manages records of issued API tokens. The token itself is never
// stored, only its metadata; revocation removes the record.
type TokenStore interface {
	CreateToken(ctx context.Context, token *APIToken) error
	GetToken(ctx context.Context, id string) (*APIToken, error)
	ListTokens(ctx context.Context, identity string) ([]*APIToken, error)
	DeleteToken(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	CallStore
	TokenStore
	Close() error
}

// Call is one persisted invocation record.
type Call struct {
	CallID    string
	ToolID    string
	Caller    string
	Success   bool
	Status    int
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// CallFilter narrows ListCalls results. Zero values mean no filtering.
type CallFilter struct {
	ToolID string
	Caller string
	Since  time.Time
	// Limit caps the result count; 0 means the default of 100, max 1000.
	Limit int
}

// APIToken is the metadata of one issued token.
type APIToken struct {
	ID        string
	Identity  string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
	CreatedBy string
}
