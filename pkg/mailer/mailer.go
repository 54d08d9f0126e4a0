// Package mailer sends the password reset email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const resetSubject = "Password Reset Request"

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>You requested a password reset. Click the link below to choose a new password:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in one hour. If you did not request this, you can ignore this email.</p>`))

// Config holds SMTP connection details.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg    Config
	logger *zap.SugaredLogger
}

func NewSMTPMailer(cfg Config, logger *zap.SugaredLogger) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// renderReset returns the plain text and HTML bodies of the reset mail.
func renderReset(name, link string) (string, string, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, struct{ Name, Link string }{name, link}); err != nil {
		return "", "", err
	}
	text := fmt.Sprintf("Hello %s,\n\nYou requested a password reset. Open the link below to choose a new password:\n\n%s\n\nThe link expires in one hour.\n", name, link)
	return text, buf.String(), nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	text, html, err := renderReset(name, link)
	if err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	m.logger.Infof("password reset email sent to %s", to)
	return nil
}

// LogMailer only logs the reset link. It is used when no SMTP account is configured.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to, _, link string) error {
	m.logger.Infow("password reset link (smtp disabled)", "to", to, "link", link)
	return nil
}
