// ABOUTME: Issued API token records: metadata only, never the token itself.
// ABOUTME: Backs the token administration tool and CLI.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateToken records an issued token. Generates ID and CreatedAt if unset.
func (s *SQLiteStore) CreateToken(ctx context.Context, token *APIToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	scopes, err := json.Marshal(token.Scopes)
	if err != nil {
		return fmt.Errorf("marshaling scopes: %w", err)
	}

	query := `
		INSERT INTO api_tokens (id, identity, scopes_json, created_at, expires_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		token.ID,
		token.Identity,
		string(scopes),
		token.CreatedAt.UTC().Format(time.RFC3339),
		token.ExpiresAt.UTC().Format(time.RFC3339),
		token.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting token record: %w", err)
	}

	s.logger.Debug("created token record", "id", token.ID, "identity", token.Identity)
	return nil
}

// GetToken retrieves a token record by ID. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetToken(ctx context.Context, id string) (*APIToken, error) {
	query := `
		SELECT id, identity, scopes_json, created_at, expires_at, created_by
		FROM api_tokens WHERE id = ?
	`
	token, err := scanToken(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	return token, err
}

// ListTokens returns token records, optionally filtered by identity, newest
// first.
func (s *SQLiteStore) ListTokens(ctx context.Context, identity string) ([]*APIToken, error) {
	query := `
		SELECT id, identity, scopes_json, created_at, expires_at, created_by
		FROM api_tokens
	`
	var args []any
	if identity != "" {
		query += " WHERE identity = ?"
		args = append(args, identity)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*APIToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// DeleteToken removes a token record. Returns ErrNotFound if absent.
func (s *SQLiteStore) DeleteToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM api_tokens WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting token record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanToken.
type scanner interface {
	Scan(dest ...any) error
}

func scanToken(row scanner) (*APIToken, error) {
	var (
		t          APIToken
		scopesJSON string
		createdAt  string
		expiresAt  string
	)
	if err := row.Scan(&t.ID, &t.Identity, &scopesJSON, &createdAt, &expiresAt, &t.CreatedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scopesJSON), &t.Scopes); err != nil {
		return nil, fmt.Errorf("parsing token scopes: %w", err)
	}
	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return &t, nil
}
