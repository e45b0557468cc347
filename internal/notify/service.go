package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/seguroja/whatsapp-crm/internal/flow"
	"github.com/seguroja/whatsapp-crm/internal/leads"
	"github.com/seguroja/whatsapp-crm/internal/observability/metrics"
	"github.com/seguroja/whatsapp-crm/internal/whatsapp"
	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

// AttemptLogger records delivery attempts. Implemented by LogStore; nil-safe
// via the noopLogStore.
type AttemptLogger interface {
	Record(ctx context.Context, leadID, channel, recipient, status, errMsg string) error
}

// Config carries the brokerage's notification targets.
type Config struct {
	AdminEmail    string
	AdminWhatsApp string
	DashboardURL  string
	MaxRetries    int
}

// Service fans a hand-off alert out to the brokerage over WhatsApp and
// email. Each channel retries independently; the hand-off succeeds when at
// least one channel delivers.
type Service struct {
	email   EmailSender
	sender  whatsapp.Sender
	log     AttemptLogger
	cfg     Config
	metrics *metrics.ConversationMetrics
	logger  *logging.Logger
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithAttemptLogger wires the delivery audit log.
func WithAttemptLogger(log AttemptLogger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics wires Prometheus counters.
func WithMetrics(m *metrics.ConversationMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a notification service.
func NewService(email EmailSender, sender whatsapp.Sender, cfg Config, opts ...ServiceOption) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	s := &Service{
		email:  email,
		sender: sender,
		log:    noopLogStore{},
		cfg:    cfg,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyHandoff alerts the brokerage that a lead qualified. Returns an error
// only when every configured channel failed.
func (s *Service) NotifyHandoff(ctx context.Context, lead *leads.Lead) error {
	var delivered int
	var errs []error

	if s.cfg.AdminWhatsApp != "" && s.sender != nil {
		if err := s.notifyWhatsApp(ctx, lead); err != nil {
			errs = append(errs, err)
		} else {
			delivered++
		}
	}
	if s.cfg.AdminEmail != "" && s.email != nil {
		if err := s.notifyEmail(ctx, lead); err != nil {
			errs = append(errs, err)
		} else {
			delivered++
		}
	}

	if delivered == 0 && len(errs) > 0 {
		return fmt.Errorf("notify: all channels failed: %w", errors.Join(errs...))
	}
	if delivered == 0 {
		s.logger.Warn("no notification channel configured", "lead_id", lead.ID)
	}
	return nil
}

func (s *Service) notifyWhatsApp(ctx context.Context, lead *leads.Lead) error {
	message := whatsappSummary(lead)
	err := s.retry(ctx, func() error {
		return s.sender.SendNotification(ctx, s.cfg.AdminWhatsApp, message)
	})
	s.recordAttempt(ctx, lead.ID, ChannelWhatsApp, s.cfg.AdminWhatsApp, err)
	if err != nil {
		return fmt.Errorf("notify: whatsapp channel: %w", err)
	}
	return nil
}

func (s *Service) notifyEmail(ctx context.Context, lead *leads.Lead) error {
	subject := "🎯 Novo Lead Qualificado - " + displayName(lead)
	msg := EmailMessage{
		To:      s.cfg.AdminEmail,
		Subject: subject,
		Body:    emailBody(lead),
		HTML:    emailHTML(lead, s.cfg.DashboardURL),
	}
	err := s.retry(ctx, func() error {
		return s.email.Send(ctx, msg)
	})
	s.recordAttempt(ctx, lead.ID, ChannelEmail, s.cfg.AdminEmail, err)
	if err != nil {
		return fmt.Errorf("notify: email channel: %w", err)
	}
	return nil
}

func (s *Service) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries)), ctx))
}

func (s *Service) recordAttempt(ctx context.Context, leadID, channel, recipient string, err error) {
	status := StatusSent
	errMsg := ""
	if err != nil {
		status = StatusFailed
		errMsg = err.Error()
	}
	s.metrics.ObserveNotify(channel, status)
	if logErr := s.log.Record(ctx, leadID, channel, recipient, status, errMsg); logErr != nil {
		s.logger.Error("notification log failed", "error", logErr, "lead_id", leadID)
	}
}

func displayName(lead *leads.Lead) string {
	if name := lead.State.Fields.Name; name != "" {
		return name
	}
	if lead.PushName != "" {
		return lead.PushName
	}
	return lead.Phone
}

// leadLines renders the collected schema as "Label: value" lines, keeping
// registry order and marking missing data as N/A.
func leadLines(lead *leads.Lead) []string {
	lines := []string{
		"Nome: " + orNA(displayName(lead)),
		"WhatsApp: " + lead.Phone,
		"Fluxo: " + orNA(string(lead.State.Type)),
	}
	for _, name := range flow.RequiredFields(lead.State.Type) {
		if name == flow.FieldName {
			continue
		}
		value := lead.State.Fields.Get(name)
		lines = append(lines, flow.FieldLabel(name)+": "+orNA(value))
	}
	return lines
}

func whatsappSummary(lead *leads.Lead) string {
	var b strings.Builder
	b.WriteString("NOVO LEAD QUALIFICADO\n\n")
	b.WriteString(strings.Join(leadLines(lead), "\n"))
	b.WriteString("\n\nEntre em contato via WhatsApp ou email.")
	return b.String()
}

func emailBody(lead *leads.Lead) string {
	var b strings.Builder
	b.WriteString("Novo Lead Qualificado\n\n")
	b.WriteString(strings.Join(leadLines(lead), "\n"))
	b.WriteString("\n\nAcesse o dashboard para assumir o atendimento.")
	return b.String()
}

func emailHTML(lead *leads.Lead, dashboardURL string) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: Arial, sans-serif;">`)
	b.WriteString(`<h2 style="color: #25D366;">🎯 Novo Lead Qualificado</h2>`)
	for _, line := range leadLines(lead) {
		label, value, _ := strings.Cut(line, ": ")
		fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>", html.EscapeString(label), html.EscapeString(value))
	}
	if dashboardURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s" style="background-color: #25D366; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Acessar Dashboard</a></p>`, dashboardURL)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

type noopLogStore struct{}

func (noopLogStore) Record(context.Context, string, string, string, string, string) error {
	return nil
}
