package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/seguroja/whatsapp-crm/internal/flow"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const leadColumns = `id, phone, push_name, status, flow_type, flow_step, automation_enabled, fields, attended_by, qualified_at, created_at, updated_at`

// GetOrCreate returns the lead for a phone, inserting it on first contact.
// A concurrent insert on the same phone loses the unique-constraint race and
// falls back to reading the winner's row.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, phone, pushName string) (*Lead, bool, error) {
	if phone == "" {
		return nil, false, ErrMissingPhone
	}

	lead, err := r.GetByPhone(ctx, phone)
	if err == nil {
		return lead, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	id := uuid.New()
	state := flow.NewState()
	fields, err := json.Marshal(state.Fields)
	if err != nil {
		return nil, false, fmt.Errorf("leads: marshal fields: %w", err)
	}

	query := `
		INSERT INTO leads (id, phone, push_name, status, flow_type, flow_step, automation_enabled, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + leadColumns
	row := r.pool.QueryRow(ctx, query,
		id, phone, pushName, StatusNew,
		string(state.Type), string(state.Step), state.AutomationEnabled, fields,
	)
	lead, err = scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			lead, err = r.GetByPhone(ctx, phone)
			return lead, false, err
		}
		return nil, false, fmt.Errorf("leads: insert failed: %w", err)
	}
	return lead, true, nil
}

// GetByID fetches a lead by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// GetByPhone fetches a lead by its phone number.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE phone = $1`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// UpdateState persists the flow state after one turn. Automation is a
// one-way switch here: only MarkQualified or Takeover turn it off, and a
// stale in-flight state can never turn it back on.
func (r *PostgresRepository) UpdateState(ctx context.Context, id string, state flow.State) error {
	fields, err := json.Marshal(state.Fields)
	if err != nil {
		return fmt.Errorf("leads: marshal fields: %w", err)
	}
	query := `
		UPDATE leads
		SET flow_type = $2, flow_step = $3, automation_enabled = leads.automation_enabled AND $4, fields = $5, updated_at = now()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, string(state.Type), string(state.Step), state.AutomationEnabled, fields)
	if err != nil {
		return fmt.Errorf("leads: update state failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkQualified stamps qualified_at and disables automation. The WHERE
// clause makes this exactly-once: a second call matches no row and reports
// false without error.
func (r *PostgresRepository) MarkQualified(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE leads
		SET status = $2, qualified_at = now(), automation_enabled = false, updated_at = now()
		WHERE id = $1 AND qualified_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id, StatusQualified)
	if err != nil {
		return false, fmt.Errorf("leads: mark qualified failed: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// No row updated: already qualified, or no such lead.
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// SetStatus moves the lead through the pipeline.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("leads: set status failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Takeover records the broker now attending the conversation and switches
// automation off.
func (r *PostgresRepository) Takeover(ctx context.Context, id, agent string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET attended_by = $2, automation_enabled = false, updated_at = now()
		WHERE id = $1`, id, agent)
	if err != nil {
		return fmt.Errorf("leads: takeover failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns leads matching the filter, most recently updated first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	args := []any{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY updated_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// Stats aggregates the pipeline counters.
func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[Status]int)}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("leads: stats failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("leads: stats scan failed: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT count(*) FROM leads WHERE qualified_at >= date_trunc('day', now())`,
	).Scan(&stats.QualifiedToday)
	if err != nil {
		return nil, fmt.Errorf("leads: stats failed: %w", err)
	}
	return stats, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead      Lead
		flowType  string
		flowStep  string
		automated bool
		fields    []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.Phone,
		&lead.PushName,
		&lead.Status,
		&flowType,
		&flowStep,
		&automated,
		&fields,
		&lead.AttendedBy,
		&lead.QualifiedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.State = flow.State{
		Type:              flow.Type(flowType),
		Step:              flow.Step(flowStep),
		AutomationEnabled: automated,
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &lead.State.Fields); err != nil {
			return nil, fmt.Errorf("leads: decode fields: %w", err)
		}
	}
	return &lead, nil
}
