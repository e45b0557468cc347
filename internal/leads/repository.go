package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seguroja/whatsapp-crm/internal/flow"
)

// Repository defines lead storage. Implementations must make MarkQualified
// an exactly-once gate: only the first call for a lead reports qualified.
type Repository interface {
	GetOrCreate(ctx context.Context, phone, pushName string) (*Lead, bool, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	GetByPhone(ctx context.Context, phone string) (*Lead, error)
	UpdateState(ctx context.Context, id string, state flow.State) error
	MarkQualified(ctx context.Context, id string) (bool, error)
	SetStatus(ctx context.Context, id string, status Status) error
	Takeover(ctx context.Context, id, agent string) error
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
	Stats(ctx context.Context) (*Stats, error)
}

// InMemoryRepository implements Repository with in-process maps. Used in
// tests and local runs without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Lead
	byPhone map[string]string
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*Lead),
		byPhone: make(map[string]string),
	}
}

// GetOrCreate returns the lead for a phone, creating it on first contact.
// The second return value reports whether a new lead was created.
func (r *InMemoryRepository) GetOrCreate(ctx context.Context, phone, pushName string) (*Lead, bool, error) {
	if phone == "" {
		return nil, false, ErrMissingPhone
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPhone[phone]; ok {
		lead := r.byID[id]
		if pushName != "" && lead.PushName == "" {
			lead.PushName = pushName
			lead.UpdatedAt = time.Now().UTC()
		}
		return copyLead(lead), false, nil
	}

	now := time.Now().UTC()
	lead := &Lead{
		ID:        uuid.New().String(),
		Phone:     phone,
		PushName:  pushName,
		Status:    StatusNew,
		State:     flow.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byID[lead.ID] = lead
	r.byPhone[phone] = lead.ID
	return copyLead(lead), true, nil
}

// GetByID retrieves a lead by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLead(lead), nil
}

// GetByPhone retrieves a lead by its phone number.
func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLead(r.byID[id]), nil
}

// UpdateState persists the flow state after one turn. Automation is a
// one-way switch here: only MarkQualified or Takeover turn it off, and a
// stale in-flight state can never turn it back on.
func (r *InMemoryRepository) UpdateState(ctx context.Context, id string, state flow.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	state.AutomationEnabled = state.AutomationEnabled && lead.State.AutomationEnabled
	lead.State = state
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkQualified stamps qualified_at and disables automation. Returns false
// without error when the lead was already qualified.
func (r *InMemoryRepository) MarkQualified(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}
	if lead.QualifiedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	lead.QualifiedAt = &now
	lead.Status = StatusQualified
	lead.State.AutomationEnabled = false
	lead.UpdatedAt = now
	return true, nil
}

// SetStatus moves the lead through the pipeline.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	lead.Status = status
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// Takeover records the broker now attending the conversation and switches
// automation off.
func (r *InMemoryRepository) Takeover(ctx context.Context, id, agent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	lead.AttendedBy = agent
	lead.State.AutomationEnabled = false
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns leads matching the filter, most recently updated first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Lead
	for _, lead := range r.byID {
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		out = append(out, copyLead(lead))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Stats aggregates the pipeline counters.
func (r *InMemoryRepository) Stats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{ByStatus: make(map[Status]int)}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, lead := range r.byID {
		stats.Total++
		stats.ByStatus[lead.Status]++
		if lead.QualifiedAt != nil && !lead.QualifiedAt.Before(today) {
			stats.QualifiedToday++
		}
	}
	return stats, nil
}

func copyLead(l *Lead) *Lead {
	out := *l
	if l.QualifiedAt != nil {
		at := *l.QualifiedAt
		out.QualifiedAt = &at
	}
	return &out
}
