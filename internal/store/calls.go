// ABOUTME: Call audit log persistence: one row per completed tool invocation.
// ABOUTME: SQLiteStore satisfies the dispatcher's audit recorder interface.

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/2389/spellbook/internal/catalog"
)

const (
	defaultCallLimit = 100
	maxCallLimit     = 1000
)

// callTimeFormat is fixed width (UTC, nine fractional digits) so the stored
// text orders lexicographically the same as the instants it encodes.
const callTimeFormat = "2006-01-02T15:04:05.000000000Z"

// RecordCall appends one invocation record to the audit log.
func (s *SQLiteStore) RecordCall(ctx context.Context, rec catalog.CallRecord) error {
	query := `
		INSERT INTO call_log (call_id, tool_id, caller, success, status, error, started_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.CallID,
		rec.ToolID,
		rec.Caller,
		boolToInt(rec.Success),
		rec.Status,
		rec.Error,
		rec.StartedAt.UTC().Format(callTimeFormat),
		rec.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting call record: %w", err)
	}

	s.logger.Debug("recorded call",
		"call_id", rec.CallID,
		"tool_id", rec.ToolID,
		"status", rec.Status,
	)
	return nil
}

// ListCalls returns audit entries matching the filter, newest first.
func (s *SQLiteStore) ListCalls(ctx context.Context, filter CallFilter) ([]*Call, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ToolID != "" {
		conds = append(conds, "tool_id = ?")
		args = append(args, filter.ToolID)
	}
	if filter.Caller != "" {
		conds = append(conds, "caller = ?")
		args = append(args, filter.Caller)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(callTimeFormat))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultCallLimit
	}
	if limit > maxCallLimit {
		limit = maxCallLimit
	}

	query := "SELECT call_id, tool_id, caller, success, status, error, started_at, duration_us FROM call_log"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying call log: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		var (
			c          Call
			success    int
			startedAt  string
			durationUS int64
		)
		if err := rows.Scan(&c.CallID, &c.ToolID, &c.Caller, &success, &c.Status, &c.Error, &startedAt, &durationUS); err != nil {
			return nil, fmt.Errorf("scanning call record: %w", err)
		}
		c.Success = success != 0
		c.StartedAt, err = time.Parse(callTimeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing call timestamp: %w", err)
		}
		c.Duration = time.Duration(durationUS) * time.Microsecond
		calls = append(calls, &c)
	}
	return calls, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
