package notify

import (
	"context"
	"strings"
	"testing"
)

type capturingSender struct {
	sent []EmailMessage
	err  error
}

func (c *capturingSender) Send(ctx context.Context, msg EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestSendWelcomeComposesPasswordSetLink(t *testing.T) {
	sender := &capturingSender{}
	mailer := NewWelcomeMailer(sender, "https://app.preconsulta.com", nil)

	if err := mailer.SendWelcome(context.Background(), "dra.silva@example.com", "Dra. Ana Silva"); err != nil {
		t.Fatalf("send welcome: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "dra.silva@example.com" {
		t.Errorf("wrong recipient: %s", msg.To)
	}
	if !strings.Contains(msg.Body, "https://app.preconsulta.com/definir-senha?email=dra.silva%40example.com") {
		t.Errorf("password-set link missing from body:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "Dra. Ana Silva") {
		t.Error("recipient name missing from body")
	}
}

func TestSendWelcomeWithoutSenderIsNoop(t *testing.T) {
	mailer := NewWelcomeMailer(nil, "https://app.preconsulta.com", nil)
	if err := mailer.SendWelcome(context.Background(), "x@example.com", "X"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
