package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/seguroja/whatsapp-crm/internal/flow"
)

var leadColumnNames = []string{
	"id", "phone", "push_name", "status", "flow_type", "flow_step",
	"automation_enabled", "fields", "attended_by", "qualified_at",
	"created_at", "updated_at",
}

func leadRow(id, phone string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows(leadColumnNames).AddRow(
		id, phone, "Maria", "novo", "", "menu",
		true, []byte(`{}`), "", (*time.Time)(nil), now, now,
	)
}

func TestPostgresGetOrCreateInserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE phone").
		WithArgs("5511987654321").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "5511987654321", "Maria", StatusNew, "", "menu", true, pgxmock.AnyArg()).
		WillReturnRows(leadRow("lead-1", "5511987654321"))

	lead, created, err := repo.GetOrCreate(context.Background(), "5511987654321", "Maria")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Error("insert not reported as created")
	}
	if lead.ID != "lead-1" || lead.Status != StatusNew {
		t.Errorf("lead = %+v", lead)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgresGetOrCreateExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM leads WHERE phone").
		WithArgs("5511987654321").
		WillReturnRows(leadRow("lead-1", "5511987654321"))

	_, created, err := repo.GetOrCreate(context.Background(), "5511987654321", "Maria")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created {
		t.Error("existing lead reported as created")
	}
}

func TestPostgresUpdateState(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	state := flow.NewState()
	state.Type = flow.TypeAuto
	state.Step = flow.Step(flow.TypeAuto)
	state.Fields.Set(flow.FieldCPFCNPJ, "12345678900")

	// automation_enabled only ever ANDs with the stored value, so a stale
	// in-flight state cannot undo a takeover or qualification.
	mock.ExpectExec(`UPDATE leads\s+SET flow_type = \$2, flow_step = \$3, automation_enabled = leads\.automation_enabled AND \$4`).
		WithArgs("lead-1", "seguro_auto", "seguro_auto", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.UpdateState(context.Background(), "lead-1", state); err != nil {
		t.Fatalf("update state: %v", err)
	}

	mock.ExpectExec("UPDATE leads").
		WithArgs("missing", "seguro_auto", "seguro_auto", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	if err := repo.UpdateState(context.Background(), "missing", state); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing lead err = %v, want ErrNotFound", err)
	}
}

func TestPostgresMarkQualifiedOnce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectExec("UPDATE leads").
		WithArgs("lead-1", StatusQualified).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	first, err := repo.MarkQualified(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("mark qualified: %v", err)
	}
	if !first {
		t.Error("first qualification reported false")
	}

	// Second call matches no row; the lead still exists, so this is the
	// already-qualified case.
	mock.ExpectExec("UPDATE leads").
		WithArgs("lead-1", StatusQualified).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT (.+) FROM leads WHERE id").
		WithArgs("lead-1").
		WillReturnRows(leadRow("lead-1", "5511987654321"))
	second, err := repo.MarkQualified(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("second mark qualified: %v", err)
	}
	if second {
		t.Error("second qualification reported true")
	}
}

func TestPostgresStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("SELECT status, count").
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("novo", 5).
			AddRow("qualificado", 2))
	mock.ExpectQuery("SELECT count").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 7 || stats.ByStatus[StatusNew] != 5 || stats.QualifiedToday != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
