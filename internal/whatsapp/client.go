package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultTypingDelay   = 2 * time.Second
	defaultTypingTimeout = 10 * time.Second
)

var gatewayTracer = otel.Tracer("seguroja.internal.whatsapp")

// Sender sends outbound WhatsApp messages. Implemented by Client; tests use
// fakes.
type Sender interface {
	SendText(ctx context.Context, number, text string) error
	SendNotification(ctx context.Context, number, text string) error
}

// Client talks to an Evolution API instance. All endpoints are scoped to one
// connected WhatsApp instance and authenticated with the apikey header.
type Client struct {
	baseURL       string
	apiKey        string
	instance      string
	typingDelay   time.Duration
	typingTimeout time.Duration
	httpClient    *http.Client
	logger        *logging.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTypingDelay sets how long the typing indicator shows before a reply.
func WithTypingDelay(d time.Duration) Option {
	return func(c *Client) { c.typingDelay = d }
}

// WithTypingTimeout bounds the togglePresence call.
func WithTypingTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.typingTimeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an Evolution API client. The base URL may be given
// without a scheme; https is assumed.
func NewClient(baseURL, apiKey, instance string, opts ...Option) *Client {
	c := &Client{
		baseURL:       normalizeBaseURL(baseURL),
		apiKey:        apiKey,
		instance:      instance,
		typingDelay:   defaultTypingDelay,
		typingTimeout: defaultTypingTimeout,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		logger:        logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return strings.TrimRight(base, "/")
}

// SendText shows the typing indicator, waits the configured delay, then
// delivers the message. The indicator is best effort; its failure never
// blocks the reply.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	if err := c.sendTyping(ctx, number); err != nil {
		c.logger.Warn("whatsapp: typing indicator failed", "error", err, "number", number)
	}
	select {
	case <-time.After(c.typingDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.post(ctx, "/message/sendText/", map[string]string{
		"number": number,
		"text":   text,
	})
}

// SendNotification delivers a message without the typing indicator. Used for
// hand-off alerts to brokers, where simulated typing would only add latency.
func (c *Client) SendNotification(ctx context.Context, number, text string) error {
	return c.post(ctx, "/message/sendText/", map[string]string{
		"number": number,
		"text":   text,
	})
}

func (c *Client) sendTyping(ctx context.Context, number string) error {
	ctx, cancel := context.WithTimeout(ctx, c.typingTimeout)
	defer cancel()
	return c.post(ctx, "/chat/togglePresence/", map[string]string{
		"number":   number,
		"presence": "composing",
	})
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	ctx, span := gatewayTracer.Start(ctx, "whatsapp.post")
	defer span.End()
	span.SetAttributes(attribute.String("seguroja.gateway.endpoint", endpoint))

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := c.baseURL + endpoint + c.instance
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer resp.Body.Close()

	if span.IsRecording() {
		span.SetAttributes(attribute.Int("seguroja.gateway.status", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
		span.RecordError(err)
		return err
	}
	return nil
}
