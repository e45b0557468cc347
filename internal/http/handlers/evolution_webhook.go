package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/seguroja/whatsapp-crm/internal/conversation"
	"github.com/seguroja/whatsapp-crm/internal/observability/metrics"
	"github.com/seguroja/whatsapp-crm/internal/whatsapp"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

type turnPublisher interface {
	Enqueue(ctx context.Context, msg conversation.InboundMessage) error
}

// EvolutionWebhookHandler ingests Evolution API events. It validates and
// enqueues in-line, so the gateway gets its 200 back in milliseconds and
// never redelivers because of slow LLM calls.
type EvolutionWebhookHandler struct {
	publisher   turnPublisher
	countryCode string
	logger      *logging.Logger
	metrics     *metrics.ConversationMetrics
}

// EvolutionWebhookConfig wires the handler.
type EvolutionWebhookConfig struct {
	Publisher   turnPublisher
	CountryCode string
	Logger      *logging.Logger
	Metrics     *metrics.ConversationMetrics
}

// NewEvolutionWebhookHandler builds the webhook handler.
func NewEvolutionWebhookHandler(cfg EvolutionWebhookConfig) *EvolutionWebhookHandler {
	if cfg.Publisher == nil {
		panic("handlers: publisher required")
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "55"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &EvolutionWebhookHandler{
		publisher:   cfg.Publisher,
		countryCode: cfg.CountryCode,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// evolutionEnvelope covers both payload shapes Evolution emits: the message
// either sits directly under data, or one level deeper under data.message.
type evolutionEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type evolutionMessage struct {
	Key      evolutionKey  `json:"key"`
	PushName string        `json:"pushName"`
	Message  evolutionBody `json:"message"`
}

type evolutionKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type evolutionBody struct {
	Conversation        string `json:"conversation"`
	ExtendedTextMessage struct {
		Text string `json:"text"`
	} `json:"extendedTextMessage"`
}

func (b evolutionBody) text() string {
	if b.Conversation != "" {
		return b.Conversation
	}
	return b.ExtendedTextMessage.Text
}

// Handle processes POST deliveries. Anything that is not a new inbound text
// is acknowledged and dropped; the gateway retries on non-2xx only, so
// invalid payloads still get a 200.
func (h *EvolutionWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var envelope evolutionEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn("webhook: undecodable payload", "error", err)
		h.metrics.ObserveInbound("invalid")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "invalid payload"})
		return
	}

	if envelope.Event != "" && envelope.Event != "messages.upsert" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "event ignored"})
		return
	}

	msg, ok := decodeMessage(envelope.Data)
	if !ok || msg.Key.FromMe || msg.Message.text() == "" || msg.Key.RemoteJID == "" {
		h.metrics.ObserveInbound("ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "message ignored"})
		return
	}

	inbound := conversation.InboundMessage{
		Phone:      whatsapp.FormatNumber(whatsapp.JIDNumber(msg.Key.RemoteJID), h.countryCode),
		PushName:   msg.PushName,
		Text:       msg.Message.text(),
		MessageID:  msg.Key.ID,
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.publisher.Enqueue(r.Context(), inbound); err != nil {
		h.logger.Error("webhook: enqueue failed", "error", err, "phone", inbound.Phone)
		h.metrics.ObserveInbound("error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	h.metrics.ObserveInbound("accepted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "message received"})
}

// HandleGet answers the gateway's reachability probes.
func (h *EvolutionWebhookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "webhook is active"})
}

// decodeMessage handles both envelope variants. The nested form wraps the
// whole message object under a "message" key that itself carries "key".
func decodeMessage(data json.RawMessage) (evolutionMessage, bool) {
	if len(data) == 0 {
		return evolutionMessage{}, false
	}

	var direct evolutionMessage
	if err := json.Unmarshal(data, &direct); err == nil && direct.Key.RemoteJID != "" {
		return direct, true
	}

	var nested struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &nested); err != nil || len(nested.Message) == 0 {
		return evolutionMessage{}, false
	}
	var inner evolutionMessage
	if err := json.Unmarshal(nested.Message, &inner); err != nil || inner.Key.RemoteJID == "" {
		return evolutionMessage{}, false
	}
	return inner, true
}
