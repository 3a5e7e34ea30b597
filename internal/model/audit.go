package model

import (
	"time"

	"github.com/google/uuid"
)

// InvocationRecord is the audit trail entry written after each invocation.
// It never carries tokens, detokenized values or bodies.
type InvocationRecord struct {
	ID              uuid.UUID `db:"id" json:"id"`
	RequestID       string    `db:"request_id" json:"request_id"`
	Adapter         string    `db:"adapter" json:"adapter"`
	StatusCode      int       `db:"status_code" json:"status_code"`
	ErrorFromClient bool      `db:"error_from_client" json:"error_from_client"`
	ErrorKind       string    `db:"error_kind" json:"error_kind,omitempty"`
	TokenCount      int       `db:"token_count" json:"token_count"`
	DurationMs      int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
