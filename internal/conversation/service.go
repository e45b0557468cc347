package conversation

import (
	"context"
	"time"

	"github.com/seguroja/whatsapp-crm/internal/flow"
	"github.com/seguroja/whatsapp-crm/internal/leads"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of the conversation as the language model sees it.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InboundMessage is a customer message as delivered by the webhook, already
// reduced to what the engine needs.
type InboundMessage struct {
	Phone      string    `json:"phone"`
	PushName   string    `json:"push_name,omitempty"`
	Text       string    `json:"text"`
	MessageID  string    `json:"message_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// TurnResult reports what one turn produced. Nil when the bot stayed quiet
// (automation off or the lead already handed off).
type TurnResult struct {
	Reply     string `json:"reply"`
	Escalated bool   `json:"escalated"`
}

// LLMClient is the language model surface the engine depends on. ExtractFields
// reads the conversation and returns field-name to value pairs restricted to
// the given schema; GenerateReply writes the next agent turn.
type LLMClient interface {
	ExtractFields(ctx context.Context, history []ChatMessage, flowType flow.Type, schema []string) (map[string]string, error)
	GenerateReply(ctx context.Context, history []ChatMessage, flowType flow.Type, askFor string) (string, error)
}

// HandoffNotifier alerts the brokerage when a lead qualifies. Implementations
// own their retry policy; the engine calls this at most once per lead.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, lead *leads.Lead) error
}

// MessageAppender persists one chat message to the durable log.
type MessageAppender interface {
	Append(ctx context.Context, leadID, role, content string) error
}

// HistoryProvider serves the recent conversation window for LLM calls.
type HistoryProvider interface {
	Append(ctx context.Context, phone string, msg ChatMessage) error
	Recent(ctx context.Context, phone string, limit int) ([]ChatMessage, error)
}

// NopAppender discards messages. Used when no durable transcript store is
// configured; the Redis window still feeds the LLM.
type NopAppender struct{}

func (NopAppender) Append(ctx context.Context, leadID, role, content string) error {
	return nil
}
