package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/preconsulta/intake-platform/pkg/logging"
)

// WelcomeMailer composes and sends the transactional welcome email carrying
// the one-time password-set link for a freshly provisioned clinician account.
type WelcomeMailer struct {
	sender        EmailSender
	publicBaseURL string
	logger        *logging.Logger
}

// NewWelcomeMailer creates a welcome mailer. If sender is nil the mailer is a
// no-op (email disabled in this environment).
func NewWelcomeMailer(sender EmailSender, publicBaseURL string, logger *logging.Logger) *WelcomeMailer {
	if logger == nil {
		logger = logging.Default()
	}
	return &WelcomeMailer{sender: sender, publicBaseURL: publicBaseURL, logger: logger}
}

// SendWelcome sends the welcome email with the password-set link.
func (m *WelcomeMailer) SendWelcome(ctx context.Context, email, fullName string) error {
	if m.sender == nil {
		m.logger.Info("welcome email skipped: no sender configured", "to", email)
		return nil
	}

	link := fmt.Sprintf("%s/definir-senha?email=%s", m.publicBaseURL, url.QueryEscape(email))
	msg := EmailMessage{
		To:      email,
		ToName:  fullName,
		Subject: "Bem-vindo(a) ao Pré-Consulta — defina sua senha",
		Body: fmt.Sprintf(
			"Olá, %s!\n\n"+
				"Sua conta no Pré-Consulta foi criada com sucesso.\n\n"+
				"Para acessar o painel, defina sua senha pelo link abaixo:\n%s\n\n"+
				"Se você não reconhece esta compra, ignore este e-mail.\n\n"+
				"Equipe Pré-Consulta",
			fullName, link),
		HTML: fmt.Sprintf(
			`<p>Olá, <strong>%s</strong>!</p>
<p>Sua conta no Pré-Consulta foi criada com sucesso.</p>
<p><a href="%s">Clique aqui para definir sua senha</a> e acessar o painel.</p>
<p>Se você não reconhece esta compra, ignore este e-mail.</p>
<p>Equipe Pré-Consulta</p>`,
			fullName, link),
	}

	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: welcome email: %w", err)
	}
	return nil
}
