package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoredMessage is one chat message in the durable transcript.
type StoredMessage struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageStore persists the full transcript in Postgres. The Redis cache
// serves the hot window; this table is the source of truth and feeds the
// dashboard's conversation view.
type MessageStore struct {
	pool PgxPool
}

// NewMessageStore creates a store backed by pgxpool.
func NewMessageStore(pool PgxPool) *MessageStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	return &MessageStore{pool: pool}
}

// Append inserts one message.
func (s *MessageStore) Append(ctx context.Context, leadID, role, content string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, lead_id, role, content)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), leadID, role, content)
	if err != nil {
		return fmt.Errorf("conversation: insert message failed: %w", err)
	}
	return nil
}

// History returns up to limit messages for a lead in chronological order.
func (s *MessageStore) History(ctx context.Context, leadID string, limit int) ([]StoredMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, lead_id, role, content, created_at
		FROM (
			SELECT id, lead_id, role, content, created_at
			FROM chat_messages
			WHERE lead_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`,
		leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: history query failed: %w", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var msg StoredMessage
		if err := rows.Scan(&msg.ID, &msg.LeadID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: history scan failed: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
