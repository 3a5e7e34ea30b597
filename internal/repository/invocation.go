package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akave-ai/vaultgate/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// InvocationRepository persists and reads the invocation audit trail.
type InvocationRepository struct {
	pool *pgxpool.Pool
}

// NewInvocationRepository returns an InvocationRepository using the given pool.
func NewInvocationRepository(pool *pgxpool.Pool) *InvocationRepository {
	return &InvocationRepository{pool: pool}
}

// Record inserts one audit record. It satisfies pipeline.AuditSink.
func (r *InvocationRepository) Record(ctx context.Context, rec *model.InvocationRecord) error {
	query := `
		INSERT INTO invocations (id, request_id, adapter, status_code, error_from_client, error_kind, token_count, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.RequestID,
		rec.Adapter,
		rec.StatusCode,
		rec.ErrorFromClient,
		rec.ErrorKind,
		rec.TokenCount,
		rec.DurationMs,
		rec.CreatedAt,
	)
	return err
}

// ListRecent returns the newest records first, optionally filtered by
// adapter. limit is clamped to (0, 500]; zero means 50.
func (r *InvocationRepository) ListRecent(ctx context.Context, adapter string, limit int) ([]model.InvocationRecord, error) {
	limit = ClampLimit(limit)
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, adapter, status_code, error_from_client, error_kind, token_count, duration_ms, created_at
		FROM invocations
		WHERE ($1::text = '' OR adapter = $1)
		ORDER BY created_at DESC
		LIMIT $2`, adapter, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[model.InvocationRecord])
}

// ClampLimit normalizes a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
