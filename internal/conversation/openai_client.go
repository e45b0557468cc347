package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/seguroja/whatsapp-crm/internal/flow"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

var llmTracer = otel.Tracer("seguroja.internal.conversation.llm")

const (
	defaultModel            = "gpt-4o"
	defaultExtractionWindow = 15
	defaultReplyWindow      = 10
	defaultLLMTimeout       = 25 * time.Second
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements LLMClient on the OpenAI chat completions API.
type OpenAIClient struct {
	client           chatClient
	model            string
	extractionWindow int
	replyWindow      int
	timeout          time.Duration
	logger           *logging.Logger
}

// OpenAIOption configures the client.
type OpenAIOption func(*OpenAIClient)

// WithModel overrides the completion model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithWindows sets how many recent messages feed extraction and reply calls.
func WithWindows(extraction, reply int) OpenAIOption {
	return func(c *OpenAIClient) {
		if extraction > 0 {
			c.extractionWindow = extraction
		}
		if reply > 0 {
			c.replyWindow = reply
		}
	}
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOpenAILogger sets the structured logger.
func WithOpenAILogger(l *logging.Logger) OpenAIOption {
	return func(c *OpenAIClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewOpenAIClient wraps a chat completion client. Pass openai.NewClient(key)
// in production; tests inject a fake.
func NewOpenAIClient(client chatClient, opts ...OpenAIOption) *OpenAIClient {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	c := &OpenAIClient{
		client:           client,
		model:            defaultModel,
		extractionWindow: defaultExtractionWindow,
		replyWindow:      defaultReplyWindow,
		timeout:          defaultLLMTimeout,
		logger:           logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExtractFields reads the recent conversation and returns values for the
// flow's schema. Keys outside the schema and null values are dropped here;
// validation happens at the merge boundary.
func (c *OpenAIClient) ExtractFields(ctx context.Context, history []ChatMessage, flowType flow.Type, schema []string) (map[string]string, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	ctx, span := llmTracer.Start(ctx, "llm.extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("seguroja.llm.model", c.model),
		attribute.String("seguroja.flow_type", string(flowType)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := toOpenAIMessages(tail(history, c.extractionWindow))
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: extractionPrompt(schema),
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   300,
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: extraction call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("conversation: extraction returned no choices")
		span.RecordError(err)
		return nil, err
	}

	raw := stripCodeFence(resp.Choices[0].Message.Content)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: decode extraction: %w", err)
	}

	allowed := make(map[string]bool, len(schema))
	for _, name := range schema {
		allowed[name] = true
	}
	values := make(map[string]string)
	for key, v := range decoded {
		if !allowed[key] {
			continue
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		values[key] = s
	}
	if span.IsRecording() {
		span.SetAttributes(attribute.Int("seguroja.llm.extracted", len(values)))
	}
	return values, nil
}

// GenerateReply writes the next agent turn, asking for askFor (a field
// label) when non-empty.
func (c *OpenAIClient) GenerateReply(ctx context.Context, history []ChatMessage, flowType flow.Type, askFor string) (string, error) {
	ctx, span := llmTracer.Start(ctx, "llm.reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("seguroja.llm.model", c.model),
		attribute.String("seguroja.flow_type", string(flowType)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(flowType, askFor)},
	}
	messages = append(messages, toOpenAIMessages(tail(history, c.replyWindow))...)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("conversation: reply call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := fmt.Errorf("conversation: reply returned no choices")
		span.RecordError(err)
		return "", err
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		err := fmt.Errorf("conversation: reply was empty")
		span.RecordError(err)
		return "", err
	}
	return reply, nil
}

func toOpenAIMessages(history []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		if role != ChatRoleAssistant && role != ChatRoleSystem {
			role = ChatRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}

func tail(history []ChatMessage, n int) []ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
