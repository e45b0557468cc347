package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the log store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"

	StatusSent   = "enviado"
	StatusFailed = "falha"
)

// LogStore records every delivery attempt so failed hand-off alerts are
// auditable from the dashboard.
type LogStore struct {
	pool PgxPool
}

// NewLogStore creates a store backed by pgxpool.
func NewLogStore(pool PgxPool) *LogStore {
	if pool == nil {
		panic("notify: pgx pool required")
	}
	return &LogStore{pool: pool}
}

// Record inserts one delivery attempt. errMsg is empty on success.
func (s *LogStore) Record(ctx context.Context, leadID, channel, recipient, status, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_logs (id, lead_id, channel, recipient, status, error_message)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))`,
		uuid.New(), leadID, channel, recipient, status, errMsg)
	if err != nil {
		return fmt.Errorf("notify: insert log failed: %w", err)
	}
	return nil
}
