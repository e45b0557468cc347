package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seguroja/whatsapp-crm/internal/conversation"
	"github.com/seguroja/whatsapp-crm/internal/flow"
	"github.com/seguroja/whatsapp-crm/internal/leads"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

const defaultListLimit = 50

type transcriptReader interface {
	History(ctx context.Context, leadID string, limit int) ([]conversation.StoredMessage, error)
}

// contactLocker is the engine's per-contact lock table. Takeover grabs the
// same lock a turn holds, so claiming a conversation never interleaves with
// an in-flight turn that could write stale state back.
type contactLocker interface {
	Lock(key string) func()
}

// AdminLeadsHandler serves the dashboard API: lead listing, funnel stats,
// transcripts and the human take-over switch.
type AdminLeadsHandler struct {
	repo     leads.Repository
	messages transcriptReader
	locks    contactLocker
	logger   *logging.Logger
}

// AdminLeadsConfig wires the handler.
type AdminLeadsConfig struct {
	Repository leads.Repository
	Messages   transcriptReader
	Locks      contactLocker
	Logger     *logging.Logger
}

// NewAdminLeadsHandler builds the dashboard handler.
func NewAdminLeadsHandler(cfg AdminLeadsConfig) *AdminLeadsHandler {
	if cfg.Repository == nil {
		panic("handlers: lead repository required")
	}
	if cfg.Messages == nil {
		panic("handlers: message store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Locks == nil {
		cfg.Locks = conversation.NewContactLocks()
	}
	return &AdminLeadsHandler{
		repo:     cfg.Repository,
		messages: cfg.Messages,
		locks:    cfg.Locks,
		logger:   cfg.Logger,
	}
}

type leadResponse struct {
	ID                string            `json:"id"`
	Phone             string            `json:"phone"`
	PushName          string            `json:"push_name,omitempty"`
	Status            string            `json:"status"`
	FlowType          string            `json:"flow_type,omitempty"`
	FlowStep          string            `json:"flow_step,omitempty"`
	Fields            map[string]string `json:"fields"`
	AutomationEnabled bool              `json:"automation_enabled"`
	AttendedBy        string            `json:"attended_by,omitempty"`
	QualifiedAt       *time.Time        `json:"qualified_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func toLeadResponse(lead *leads.Lead) leadResponse {
	fields := make(map[string]string)
	for _, name := range flow.RequiredFields(lead.State.Type) {
		if value := lead.State.Fields.Get(name); value != "" {
			fields[name] = value
		}
	}
	return leadResponse{
		ID:                lead.ID,
		Phone:             lead.Phone,
		PushName:          lead.PushName,
		Status:            string(lead.Status),
		FlowType:          string(lead.State.Type),
		FlowStep:          string(lead.State.Step),
		Fields:            fields,
		AutomationEnabled: lead.State.AutomationEnabled,
		AttendedBy:        lead.AttendedBy,
		QualifiedAt:       lead.QualifiedAt,
		CreatedAt:         lead.CreatedAt,
		UpdatedAt:         lead.UpdatedAt,
	}
}

// List answers GET /api/leads?status=&limit=&offset=.
func (h *AdminLeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := leads.ListFilter{Limit: defaultListLimit}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := leads.Status(strings.ToLower(raw))
		if !status.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid offset"})
			return
		}
		filter.Offset = offset
	}

	result, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list leads failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	items := make([]leadResponse, 0, len(result))
	for _, lead := range result {
		items = append(items, toLeadResponse(lead))
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": items, "count": len(items)})
}

// Get answers GET /api/leads/{id}.
func (h *AdminLeadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(lead))
}

// Stats answers GET /api/leads/stats with funnel totals and rates.
func (h *AdminLeadsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		h.logger.Error("lead stats failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	qualified := stats.ByStatus[leads.StatusQualified] +
		stats.ByStatus[leads.StatusNegotiating] +
		stats.ByStatus[leads.StatusConverted]
	converted := stats.ByStatus[leads.StatusConverted]

	writeJSON(w, http.StatusOK, map[string]any{
		"total":              stats.Total,
		"by_status":          byStatus,
		"qualified_today":    stats.QualifiedToday,
		"qualification_rate": rate(qualified, stats.Total),
		"conversion_rate":    rate(converted, qualified),
	})
}

// Messages answers GET /api/leads/{id}/messages with the transcript in
// chronological order.
func (h *AdminLeadsHandler) Messages(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	history, err := h.messages.History(r.Context(), lead.ID, limit)
	if err != nil {
		h.logger.Error("load transcript failed", "error", err, "lead_id", lead.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lead_id": lead.ID, "messages": history})
}

type takeoverRequest struct {
	Agent string `json:"agent"`
}

// Takeover answers POST /api/leads/{id}/takeover: a human agent claims the
// conversation and the bot goes quiet.
func (h *AdminLeadsHandler) Takeover(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	var req takeoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if strings.TrimSpace(req.Agent) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent is required"})
		return
	}

	// Wait out any in-flight turn for this contact before flipping
	// automation off.
	unlock := h.locks.Lock(lead.Phone)
	defer unlock()

	if err := h.repo.Takeover(r.Context(), lead.ID, req.Agent); err != nil {
		h.logger.Error("takeover failed", "error", err, "lead_id", lead.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	updated, err := h.repo.GetByID(r.Context(), lead.ID)
	if err != nil {
		h.logger.Error("reload lead failed", "error", err, "lead_id", lead.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(updated))
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus answers PATCH /api/leads/{id}/status so agents can move leads
// through the funnel.
func (h *AdminLeadsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadLead(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	status := leads.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if err := h.repo.SetStatus(r.Context(), lead.ID, status); err != nil {
		h.logger.Error("set status failed", "error", err, "lead_id", lead.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	updated, err := h.repo.GetByID(r.Context(), lead.ID)
	if err != nil {
		h.logger.Error("reload lead failed", "error", err, "lead_id", lead.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(updated))
}

func (h *AdminLeadsHandler) loadLead(w http.ResponseWriter, r *http.Request) (*leads.Lead, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lead id is required"})
		return nil, false
	}
	lead, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, leads.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("load lead failed", "error", err, "lead_id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return nil, false
	}
	return lead, true
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
