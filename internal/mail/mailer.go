// Package mail sends outbound HTML email. Delivery is fire-and-forget:
// Send reports success or failure and never returns an error, mirroring
// how the rest of the system treats notifications as best-effort.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/config"
)

// Mailer delivers one message. Implementations must not panic and must
// report failure through the return value only.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) bool
}

// New picks the sender for the configured mail mode.
func New(cfg *config.Config) Mailer {
	if cfg.MailMode == "smtp" {
		return &smtpMailer{
			addr:     cfg.SMTPAddr(),
			host:     cfg.SMTPHost,
			user:     cfg.SMTPUser,
			password: cfg.SMTPPassword,
			from:     cfg.MailFrom,
			fromName: cfg.MailFromName,
		}
	}
	return &logMailer{}
}

// logMailer logs instead of sending, for development.
type logMailer struct{}

func (m *logMailer) Send(ctx context.Context, to, subject, htmlBody string) bool {
	log.Info().Str("to", to).Str("subject", subject).Msg("mail (log mode)")
	return true
}

type smtpMailer struct {
	addr     string
	host     string
	user     string
	password string
	from     string
	fromName string
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, htmlBody string) bool {
	domain := m.from
	if at := strings.LastIndex(m.from, "@"); at >= 0 {
		domain = m.from[at+1:]
	}

	message := fmt.Sprintf("From: %s <%s>\r\n", m.fromName, m.from)
	message += fmt.Sprintf("To: %s\r\n", to)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	message += "MIME-Version: 1.0\r\n"
	message += "Content-Type: text/html; charset=UTF-8\r\n"
	message += "\r\n"
	message += htmlBody

	auth := smtp.PlainAuth("", m.user, m.password, m.host)

	if err := smtp.SendMail(m.addr, auth, m.from, []string{to}, []byte(message)); err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send mail")
		return false
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return true
}
