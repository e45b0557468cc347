package conversation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/seguroja/whatsapp-crm/internal/flow"
	"github.com/seguroja/whatsapp-crm/internal/leads"
	"github.com/seguroja/whatsapp-crm/internal/observability/metrics"
	"github.com/seguroja/whatsapp-crm/internal/whatsapp"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

var engineTracer = otel.Tracer("seguroja.internal.conversation.engine")

// Engine processes one inbound turn end to end: load the lead, advance the
// flow, persist, qualify, reply. Turns for the same contact are serialized;
// different contacts proceed concurrently.
type Engine struct {
	repo     leads.Repository
	store    MessageAppender
	history  HistoryProvider
	sender   whatsapp.Sender
	llm      LLMClient
	notifier HandoffNotifier
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	locks    *ContactLocks
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetrics wires Prometheus counters.
func WithMetrics(m *metrics.ConversationMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithEngineLogger sets the structured logger.
func WithEngineLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithContactLocks shares a lock table with other contact-serialized paths,
// such as the admin takeover handler.
func WithContactLocks(locks *ContactLocks) EngineOption {
	return func(e *Engine) {
		if locks != nil {
			e.locks = locks
		}
	}
}

// NewEngine wires the turn processor. All dependencies except options are
// required.
func NewEngine(
	repo leads.Repository,
	store MessageAppender,
	history HistoryProvider,
	sender whatsapp.Sender,
	llm LLMClient,
	notifier HandoffNotifier,
	opts ...EngineOption,
) *Engine {
	if repo == nil {
		panic("conversation: leads repository required")
	}
	if store == nil {
		panic("conversation: message store required")
	}
	if history == nil {
		panic("conversation: history provider required")
	}
	if sender == nil {
		panic("conversation: whatsapp sender required")
	}
	if llm == nil {
		panic("conversation: llm client required")
	}
	e := &Engine{
		repo:     repo,
		store:    store,
		history:  history,
		sender:   sender,
		llm:      llm,
		notifier: notifier,
		logger:   logging.Default(),
		locks:    NewContactLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleInbound runs one turn and reports the reply and whether the lead was
// handed off; a nil result means the bot stayed quiet. Persistence failures
// on the lead record are fatal for the turn; cache and transcript failures
// are logged and the turn continues, since losing a cached window only
// degrades extraction.
func (e *Engine) HandleInbound(ctx context.Context, msg InboundMessage) (*TurnResult, error) {
	started := time.Now()
	ctx, span := engineTracer.Start(ctx, "conversation.turn")
	defer span.End()

	unlock := e.locks.Lock(msg.Phone)
	defer unlock()

	lead, created, err := e.repo.GetOrCreate(ctx, msg.Phone, msg.PushName)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveInbound("error")
		return nil, fmt.Errorf("conversation: load lead: %w", err)
	}
	span.SetAttributes(
		attribute.String("seguroja.lead_id", lead.ID),
		attribute.String("seguroja.flow_type", string(lead.State.Type)),
	)
	if created {
		e.logger.Info("new lead created", "lead_id", lead.ID, "phone", msg.Phone)
	}

	e.appendMessage(ctx, lead.ID, msg.Phone, ChatRoleUser, msg.Text)

	// A broker owns the conversation once the lead qualifies or takes it
	// over manually. The transcript above is still recorded.
	if !lead.State.AutomationEnabled || lead.Qualified() {
		e.metrics.ObserveInbound("muted")
		return nil, nil
	}

	state := flow.Advance(ctx, lead.State, msg.Text, e.extractFunc(msg.Phone))
	if err := e.repo.UpdateState(ctx, lead.ID, state); err != nil {
		span.RecordError(err)
		e.metrics.ObserveInbound("error")
		return nil, fmt.Errorf("conversation: persist state: %w", err)
	}

	if flow.ShouldEscalate(state.Step, state.Type, state.Fields) {
		return e.escalate(ctx, lead, state, started)
	}

	reply := e.composeReply(ctx, msg, state)
	e.appendMessage(ctx, lead.ID, msg.Phone, ChatRoleAssistant, reply)
	if err := e.sender.SendText(ctx, msg.Phone, reply); err != nil {
		span.RecordError(err)
		e.metrics.ObserveInbound("error")
		return nil, fmt.Errorf("conversation: send reply: %w", err)
	}

	e.metrics.ObserveInbound("ok")
	e.metrics.ObserveOutbound("reply")
	e.metrics.ObserveTurnLatency(time.Since(started).Seconds())
	return &TurnResult{Reply: reply}, nil
}

// escalate hands the lead to a human. MarkQualified is the exactly-once
// gate: only the turn that wins it sends the closing message and fires
// notifications.
func (e *Engine) escalate(ctx context.Context, lead *leads.Lead, state flow.State, started time.Time) (*TurnResult, error) {
	ctx, span := engineTracer.Start(ctx, "conversation.handoff")
	defer span.End()
	span.SetAttributes(
		attribute.String("seguroja.lead_id", lead.ID),
		attribute.String("seguroja.flow_type", string(state.Type)),
	)

	first, err := e.repo.MarkQualified(ctx, lead.ID)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveInbound("error")
		return nil, fmt.Errorf("conversation: mark qualified: %w", err)
	}
	if !first {
		e.metrics.ObserveInbound("muted")
		return nil, nil
	}
	e.metrics.ObserveQualified()
	e.logger.Info("lead qualified",
		"lead_id", lead.ID,
		"flow_type", string(state.Type),
		"phone", lead.Phone,
	)

	closing := completionMessage
	if flow.EscalatesOnEntry(state.Type) {
		closing = EntryMessage(state.Type)
	}
	e.appendMessage(ctx, lead.ID, lead.Phone, ChatRoleAssistant, closing)
	if err := e.sender.SendText(ctx, lead.Phone, closing); err != nil {
		e.logger.Error("closing message failed", "error", err, "lead_id", lead.ID)
	}
	e.metrics.ObserveOutbound("handoff")

	if e.notifier != nil {
		qualified := *lead
		qualified.State = state
		if err := e.notifier.NotifyHandoff(ctx, &qualified); err != nil {
			e.logger.Error("handoff notification failed", "error", err, "lead_id", lead.ID)
		}
	}

	e.metrics.ObserveTurnLatency(time.Since(started).Seconds())
	return &TurnResult{Reply: closing, Escalated: true}, nil
}

// composeReply picks the fixed menu texts for navigation steps and asks the
// model for everything else. Any model failure degrades to the apology.
func (e *Engine) composeReply(ctx context.Context, msg InboundMessage, state flow.State) string {
	switch state.Step {
	case flow.StepMenu:
		return MenuMessage(whatsapp.FirstName(msg.PushName))
	case flow.StepChoosingInsuranceType:
		return insuranceMenuMessage
	}

	if state.Type == flow.TypeConsortium && !state.Fields.Filled(flow.FieldConsortiumType) {
		return consortiumMenuMessage
	}

	askFor := ""
	if next := flow.NextField(state.Type, state.Fields); next != "" {
		askFor = flow.FieldLabel(next)
	}
	history, err := e.history.Recent(ctx, msg.Phone, 0)
	if err != nil {
		e.logger.Warn("history read failed", "error", err, "phone", msg.Phone)
	}
	reply, err := e.llm.GenerateReply(ctx, history, state.Type, askFor)
	if err != nil {
		e.metrics.ObserveLLMCall("reply", "error")
		e.logger.Error("reply generation failed", "error", err, "phone", msg.Phone)
		return fallbackMessage
	}
	e.metrics.ObserveLLMCall("reply", "ok")
	return reply
}

// extractFunc adapts the LLM extraction to the flow machine's contract,
// feeding it the cached conversation window.
func (e *Engine) extractFunc(phone string) flow.ExtractFunc {
	return func(ctx context.Context, flowType flow.Type, schema []string) (map[string]string, error) {
		history, err := e.history.Recent(ctx, phone, 0)
		if err != nil {
			return nil, err
		}
		values, err := e.llm.ExtractFields(ctx, history, flowType, schema)
		if err != nil {
			e.metrics.ObserveLLMCall("extract", "error")
			return nil, err
		}
		e.metrics.ObserveLLMCall("extract", "ok")
		return values, nil
	}
}

func (e *Engine) appendMessage(ctx context.Context, leadID, phone, role, content string) {
	if err := e.store.Append(ctx, leadID, role, content); err != nil {
		e.logger.Error("transcript append failed", "error", err, "lead_id", leadID)
	}
	if err := e.history.Append(ctx, phone, ChatMessage{Role: role, Content: content}); err != nil {
		e.logger.Warn("history cache append failed", "error", err, "phone", phone)
	}
}
