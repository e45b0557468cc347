package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/seguroja/whatsapp-crm/internal/flow"
	"github.com/seguroja/whatsapp-crm/internal/leads"
)

type fakeEmail struct {
	failures int
	calls    int
	last     EmailMessage
}

func (f *fakeEmail) Send(ctx context.Context, msg EmailMessage) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.last = msg
	return nil
}

type fakeWhatsApp struct {
	failures int
	calls    int
	lastTo   string
	lastText string
}

func (f *fakeWhatsApp) SendText(ctx context.Context, number, text string) error {
	return f.SendNotification(ctx, number, text)
}

func (f *fakeWhatsApp) SendNotification(ctx context.Context, number, text string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("gateway timeout")
	}
	f.lastTo = number
	f.lastText = text
	return nil
}

type recordingLog struct {
	attempts []string
}

func (r *recordingLog) Record(ctx context.Context, leadID, channel, recipient, status, errMsg string) error {
	r.attempts = append(r.attempts, channel+":"+status)
	return nil
}

func qualifiedLead() *leads.Lead {
	lead := &leads.Lead{
		ID:       "lead-1",
		Phone:    "5511987654321",
		PushName: "maria",
	}
	lead.State.Type = flow.TypeClaim
	lead.State.Step = flow.Step(flow.TypeClaim)
	lead.State.Fields.Set(flow.FieldName, "Maria da Silva")
	lead.State.Fields.Set(flow.FieldPhone, "11987654321")
	return lead
}

func TestNotifyHandoffFansOut(t *testing.T) {
	email := &fakeEmail{}
	wa := &fakeWhatsApp{}
	log := &recordingLog{}
	svc := NewService(email, wa, Config{
		AdminEmail:    "corretor@seguroja.com.br",
		AdminWhatsApp: "5511900000000",
		DashboardURL:  "https://painel.seguroja.com.br",
	}, WithAttemptLogger(log))

	if err := svc.NotifyHandoff(context.Background(), qualifiedLead()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if wa.lastTo != "5511900000000" {
		t.Errorf("whatsapp recipient = %q", wa.lastTo)
	}
	if !strings.Contains(wa.lastText, "NOVO LEAD QUALIFICADO") ||
		!strings.Contains(wa.lastText, "Maria da Silva") ||
		!strings.Contains(wa.lastText, "sinistro") {
		t.Errorf("whatsapp summary = %q", wa.lastText)
	}

	if email.last.To != "corretor@seguroja.com.br" {
		t.Errorf("email recipient = %q", email.last.To)
	}
	if !strings.Contains(email.last.Subject, "Maria da Silva") {
		t.Errorf("subject = %q", email.last.Subject)
	}
	if !strings.Contains(email.last.HTML, "https://painel.seguroja.com.br") {
		t.Error("dashboard link missing from HTML body")
	}

	want := []string{"whatsapp:enviado", "email:enviado"}
	if len(log.attempts) != 2 || log.attempts[0] != want[0] || log.attempts[1] != want[1] {
		t.Errorf("attempts = %v, want %v", log.attempts, want)
	}
}

func TestNotifyHandoffRetriesTransientFailure(t *testing.T) {
	email := &fakeEmail{failures: 2}
	wa := &fakeWhatsApp{}
	svc := NewService(email, wa, Config{
		AdminEmail: "corretor@seguroja.com.br",
		MaxRetries: 3,
	})

	if err := svc.NotifyHandoff(context.Background(), qualifiedLead()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if email.calls != 3 {
		t.Errorf("email attempts = %d, want 3", email.calls)
	}
}

func TestNotifyHandoffPartialFailureStillSucceeds(t *testing.T) {
	email := &fakeEmail{failures: 100}
	wa := &fakeWhatsApp{}
	log := &recordingLog{}
	svc := NewService(email, wa, Config{
		AdminEmail:    "corretor@seguroja.com.br",
		AdminWhatsApp: "5511900000000",
		MaxRetries:    1,
	}, WithAttemptLogger(log))

	if err := svc.NotifyHandoff(context.Background(), qualifiedLead()); err != nil {
		t.Fatalf("one delivered channel should succeed, got %v", err)
	}
	if log.attempts[0] != "whatsapp:enviado" || log.attempts[1] != "email:falha" {
		t.Errorf("attempts = %v", log.attempts)
	}
}

func TestNotifyHandoffAllChannelsFail(t *testing.T) {
	email := &fakeEmail{failures: 100}
	wa := &fakeWhatsApp{failures: 100}
	svc := NewService(email, wa, Config{
		AdminEmail:    "corretor@seguroja.com.br",
		AdminWhatsApp: "5511900000000",
		MaxRetries:    1,
	})

	if err := svc.NotifyHandoff(context.Background(), qualifiedLead()); err == nil {
		t.Fatal("expected error when every channel fails")
	}
}

func TestLeadLinesMarksMissingData(t *testing.T) {
	lead := qualifiedLead()
	lead.State.Fields.Set(flow.FieldPhone, "")

	summary := whatsappSummary(lead)
	if !strings.Contains(summary, "Telefone: N/A") {
		t.Errorf("summary = %q", summary)
	}
}
