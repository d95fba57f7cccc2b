// Package mail delivers the transactional emails of the credential lifecycle.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieapi/gateway/internal/core/domain"
	"github.com/sieapi/gateway/internal/core/ports"
)

const (
	subjectConfirmation = "Confirme seu cadastro na SIE API"
	subjectReset        = "Recuperação de Senha - SIE API"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "confirmation"}}<h2>Bem-vindo à SIE API!</h2>
<p>Olá {{.Name}},</p>
<p>Obrigado por se cadastrar. Por favor, confirme seu e-mail clicando no link abaixo:</p>
<p><a href="{{.Link}}">Confirmar E-mail</a></p>
<p>Se você não solicitou este cadastro, por favor ignore este e-mail.</p>
<p>Atenciosamente,<br>Equipe SIE API</p>
{{end}}
{{define "password_reset"}}<h2>Recuperação de Senha - SIE API</h2>
<p>Olá {{.Name}},</p>
<p>Você solicitou a recuperação de senha. Clique no link abaixo para redefinir sua senha:</p>
<p><a href="{{.Link}}">Redefinir Senha</a></p>
<p>Este link expira em 24 horas.</p>
<p>Se você não solicitou esta recuperação, por favor ignore este e-mail.</p>
<p>Atenciosamente,<br>Equipe SIE API</p>
{{end}}`))

type templateData struct {
	Name string
	Link string
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

func render(kind, subject string, user *domain.User, link string) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, kind, templateData{Name: user.Name, Link: link}); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", kind, err)
	}
	return Message{To: user.Email, Subject: subject, HTML: buf.String()}, nil
}

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML emails through an SMTP relay. STARTTLS is negotiated
// by net/smtp whenever the server offers it.
type SMTPMailer struct {
	cfg  Config
	auth smtp.Auth
	send sendFunc
	now  func() time.Time
}

var _ ports.Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg Config) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{cfg: cfg, auth: auth, send: smtp.SendMail, now: time.Now}
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, user *domain.User, link string) error {
	msg, err := render("confirmation", subjectConfirmation, user, link)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, user *domain.User, link string) error {
	msg, err := render("password_reset", subjectReset, user, link)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

// deliver runs the blocking SMTP exchange in its own goroutine so a cancelled
// request does not wait for a slow relay.
func (m *SMTPMailer) deliver(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	raw := m.compose(msg)

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, m.auth, m.cfg.From, []string{msg.To}, raw)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + m.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// LogMailer writes emails to the log instead of sending them. It is used when
// no SMTP relay is configured.
type LogMailer struct {
	log zerolog.Logger
}

var _ ports.Mailer = (*LogMailer)(nil)

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendConfirmation(_ context.Context, user *domain.User, link string) error {
	m.log.Info().Str("user_id", user.ID).Str("kind", "confirmation").Str("link", link).Msg("email not sent, smtp disabled")
	return nil
}

func (m *LogMailer) SendPasswordReset(_ context.Context, user *domain.User, link string) error {
	m.log.Info().Str("user_id", user.ID).Str("kind", "password_reset").Str("link", link).Msg("email not sent, smtp disabled")
	return nil
}
