package leads

import (
	"time"

	"github.com/seguroja/whatsapp-crm/internal/flow"
)

// Status is the lead's position in the sales pipeline. New contacts start as
// StatusNew; qualification moves them to StatusQualified exactly once, and
// brokers move them manually from there.
type Status string

const (
	StatusNew         Status = "novo"
	StatusQualified   Status = "qualificado"
	StatusNegotiating Status = "em_negociacao"
	StatusConverted   Status = "convertido"
	StatusLost        Status = "perdido"
)

// Valid reports whether s is a registered pipeline status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusQualified, StatusNegotiating, StatusConverted, StatusLost:
		return true
	}
	return false
}

// Lead is one WhatsApp contact and everything collected about them. Phone is
// the natural key (digits only, country code included); State carries the
// flow position and the accumulating field record.
type Lead struct {
	ID          string     `json:"id"`
	Phone       string     `json:"phone"`
	PushName    string     `json:"push_name,omitempty"`
	Status      Status     `json:"status"`
	State       flow.State `json:"state"`
	AttendedBy  string     `json:"attended_by,omitempty"`
	QualifiedAt *time.Time `json:"qualified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Qualified reports whether the lead has ever been handed off. The timestamp
// is set once and never cleared, so this can only flip from false to true.
func (l *Lead) Qualified() bool {
	return l.QualifiedAt != nil
}

// Stats summarizes the pipeline for the dashboard.
type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[Status]int `json:"by_status"`
	QualifiedToday int            `json:"qualified_today"`
}

// ListFilter narrows List results. The zero value lists everything, newest
// activity first.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
