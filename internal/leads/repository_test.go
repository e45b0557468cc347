package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/seguroja/whatsapp-crm/internal/flow"
)

func TestInMemoryGetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	lead, created, err := repo.GetOrCreate(ctx, "5511987654321", "Maria")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Error("first contact not reported as created")
	}
	if lead.Status != StatusNew {
		t.Errorf("status = %q, want %q", lead.Status, StatusNew)
	}
	if lead.State.Step != flow.StepMenu || !lead.State.AutomationEnabled {
		t.Errorf("initial state = %+v", lead.State)
	}

	again, created, err := repo.GetOrCreate(ctx, "5511987654321", "")
	if err != nil {
		t.Fatalf("get or create again: %v", err)
	}
	if created {
		t.Error("second contact reported as created")
	}
	if again.ID != lead.ID {
		t.Errorf("second contact got a different lead: %s vs %s", again.ID, lead.ID)
	}
	if again.PushName != "Maria" {
		t.Errorf("push name lost: %q", again.PushName)
	}

	if _, _, err := repo.GetOrCreate(ctx, "", "x"); !errors.Is(err, ErrMissingPhone) {
		t.Errorf("empty phone err = %v, want ErrMissingPhone", err)
	}
}

func TestInMemoryUpdateState(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	lead, _, _ := repo.GetOrCreate(ctx, "5511987654321", "Maria")

	state := lead.State
	state.Type = flow.TypeAuto
	state.Step = flow.Step(flow.TypeAuto)
	state.Fields.Set(flow.FieldCPFCNPJ, "12345678900")
	if err := repo.UpdateState(ctx, lead.ID, state); err != nil {
		t.Fatalf("update state: %v", err)
	}

	got, err := repo.GetByID(ctx, lead.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.State.Type != flow.TypeAuto || got.State.Fields.CPFCNPJ != "12345678900" {
		t.Errorf("state not persisted: %+v", got.State)
	}

	if err := repo.UpdateState(ctx, "missing", state); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing lead err = %v, want ErrNotFound", err)
	}
}

func TestInMemoryUpdateStateCannotReenableAutomation(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	lead, _, _ := repo.GetOrCreate(ctx, "5511987654321", "Maria")

	if err := repo.Takeover(ctx, lead.ID, "carla"); err != nil {
		t.Fatalf("takeover: %v", err)
	}

	// A turn that was in flight when the broker took over still carries
	// automation_enabled = true; persisting it must not hand the
	// conversation back to the bot.
	stale := lead.State
	stale.Type = flow.TypeAuto
	stale.Step = flow.Step(flow.TypeAuto)
	stale.AutomationEnabled = true
	if err := repo.UpdateState(ctx, lead.ID, stale); err != nil {
		t.Fatalf("update state: %v", err)
	}

	got, _ := repo.GetByID(ctx, lead.ID)
	if got.State.AutomationEnabled {
		t.Error("stale turn re-enabled automation after takeover")
	}
	if got.AttendedBy != "carla" {
		t.Errorf("attended_by = %q, want carla", got.AttendedBy)
	}
	if got.State.Type != flow.TypeAuto {
		t.Errorf("flow progress lost: %+v", got.State)
	}
}

func TestInMemoryMarkQualifiedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	lead, _, _ := repo.GetOrCreate(ctx, "5511987654321", "Maria")

	first, err := repo.MarkQualified(ctx, lead.ID)
	if err != nil {
		t.Fatalf("mark qualified: %v", err)
	}
	if !first {
		t.Fatal("first qualification reported false")
	}

	second, err := repo.MarkQualified(ctx, lead.ID)
	if err != nil {
		t.Fatalf("second mark qualified: %v", err)
	}
	if second {
		t.Error("second qualification reported true; hand-off would duplicate")
	}

	got, _ := repo.GetByID(ctx, lead.ID)
	if got.QualifiedAt == nil || got.Status != StatusQualified {
		t.Errorf("qualification not recorded: %+v", got)
	}
	if got.State.AutomationEnabled {
		t.Error("automation still on after qualification")
	}

	if _, err := repo.MarkQualified(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing lead err = %v, want ErrNotFound", err)
	}
}

func TestInMemoryTakeover(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	lead, _, _ := repo.GetOrCreate(ctx, "5511987654321", "Maria")

	if err := repo.Takeover(ctx, lead.ID, "carlos"); err != nil {
		t.Fatalf("takeover: %v", err)
	}
	got, _ := repo.GetByID(ctx, lead.ID)
	if got.AttendedBy != "carlos" {
		t.Errorf("attended_by = %q, want carlos", got.AttendedBy)
	}
	if got.State.AutomationEnabled {
		t.Error("automation still on after takeover")
	}
}

func TestInMemoryListAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	a, _, _ := repo.GetOrCreate(ctx, "5511911111111", "A")
	b, _, _ := repo.GetOrCreate(ctx, "5511922222222", "B")
	repo.GetOrCreate(ctx, "5511933333333", "C")
	repo.MarkQualified(ctx, a.ID)
	repo.SetStatus(ctx, b.ID, StatusLost)

	all, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("list returned %d leads, want 3", len(all))
	}

	qualified, err := repo.List(ctx, ListFilter{Status: StatusQualified})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(qualified) != 1 || qualified[0].ID != a.ID {
		t.Errorf("filtered list = %+v", qualified)
	}

	limited, _ := repo.List(ctx, ListFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limited list returned %d leads, want 2", len(limited))
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByStatus[StatusQualified] != 1 || stats.ByStatus[StatusLost] != 1 || stats.ByStatus[StatusNew] != 1 {
		t.Errorf("by status = %v", stats.ByStatus)
	}
	if stats.QualifiedToday != 1 {
		t.Errorf("qualified today = %d, want 1", stats.QualifiedToday)
	}

	if err := repo.SetStatus(ctx, a.ID, Status("inventado")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status err = %v, want ErrInvalidStatus", err)
	}
}
