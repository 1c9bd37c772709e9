package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agora-gov/agora/internal/port/auditlog"
)

// AuditStore implements auditlog.Store using PostgreSQL (append-only).
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts a new entry into the deliberation_audit table. The caller's
// timestamp is preserved; a zero one falls back to the database clock.
func (s *AuditStore) Append(ctx context.Context, e *auditlog.Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO deliberation_audit (session_id, subject_id, agent_id, action, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.SessionID, e.SubjectID, nullIfEmpty(e.AgentID), e.Action, e.Details, createdAt)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListBySubject returns audit entries for a subject, oldest first.
func (s *AuditStore) ListBySubject(ctx context.Context, subjectID string, limit int) ([]auditlog.Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, subject_id, COALESCE(agent_id, ''), action, COALESCE(details, ''), created_at
		 FROM deliberation_audit WHERE subject_id = $1 ORDER BY created_at ASC LIMIT $2`,
		subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit by subject %s: %w", subjectID, err)
	}
	defer rows.Close()

	var entries []auditlog.Entry
	for rows.Next() {
		var e auditlog.Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SubjectID, &e.AgentID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// nullIfEmpty converts empty strings to NULL for nullable columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
