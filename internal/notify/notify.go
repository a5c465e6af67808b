// Package notify renders lifecycle events into email and hands them to the
// mailer. It is the only subscriber of the event bus.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/events"
	"github.com/therapease/booking-server-go/internal/mail"
	"github.com/therapease/booking-server-go/internal/model"
)

type Notifier struct {
	mailer        mail.Mailer
	serverBaseURL string
	clinicName    string
}

func New(mailer mail.Mailer, serverBaseURL, clinicName string) *Notifier {
	return &Notifier{
		mailer:        mailer,
		serverBaseURL: serverBaseURL,
		clinicName:    clinicName,
	}
}

// Register subscribes one handler per event type on the bus.
func (n *Notifier) Register(bus *events.Bus) {
	bus.Subscribe(events.TypeUserRegistered, n.handleVerificationCode)
	bus.Subscribe(events.TypeNewVerificationCode, n.handleVerificationCode)
	bus.Subscribe(events.TypeSessionBooked, n.handleSessionBooked)
	bus.Subscribe(events.TypeConfirmationDue, n.handleConfirmationDue)
}

func (n *Notifier) handleVerificationCode(ctx context.Context, e events.Event) error {
	var email string
	var code int

	switch ev := e.(type) {
	case events.UserRegistered:
		email, code = ev.Email, ev.Code
	case events.NewVerificationCode:
		email, code = ev.Email, ev.Code
	default:
		return fmt.Errorf("unexpected event %T", e)
	}

	subject := fmt.Sprintf("Verification code: %d", code)
	body := fmt.Sprintf(`
		<h1>%s</h1>
		<p>Your verification code is: %d</p>
	`, n.clinicName, code)

	if !n.mailer.Send(ctx, email, subject, body) {
		return fmt.Errorf("send verification code to %s", email)
	}
	return nil
}

func (n *Notifier) handleSessionBooked(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.SessionBooked)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	body := n.renderSessionMail(ev.Session, "Please confirm your attendance")

	if !n.mailer.Send(ctx, ev.Email, "Booking confirmation", body) {
		return fmt.Errorf("send booking mail to %s", ev.Email)
	}
	return nil
}

func (n *Notifier) handleConfirmationDue(ctx context.Context, e events.Event) error {
	ev, ok := e.(events.ConfirmationDue)
	if !ok {
		return fmt.Errorf("unexpected event %T", e)
	}

	body := n.renderSessionMail(ev.Session, "Your session starts soon, please confirm your attendance")

	if !n.mailer.Send(ctx, ev.Email, "Session confirmation needed", body) {
		return fmt.Errorf("send confirmation-due mail to %s", ev.Email)
	}
	return nil
}

func (n *Notifier) renderSessionMail(session model.Session, prompt string) string {
	confirmToken := ""
	if session.ConfirmationToken != nil {
		confirmToken = *session.ConfirmationToken
	}
	cancelToken := ""
	if session.CancelationToken != nil {
		cancelToken = *session.CancelationToken
	}
	if confirmToken == "" || cancelToken == "" {
		log.Warn().Str("sessionId", session.ID).Msg("rendering session mail without tokens")
	}

	return fmt.Sprintf(`
		<h1>%s</h1>
		<h3>Session on %s at %s</h3>
		<p>%s</p>
		<p>
			<a href="%s/session/confirm/%s?token=%s">Click to confirm</a>
			<a href="%s/session/cancel/%s?token=%s">Click to cancel</a>
		</p>
	`,
		n.clinicName,
		session.Date.Format("02/01/2006"),
		session.Date.Format("15:04"),
		prompt,
		n.serverBaseURL, session.ID, confirmToken,
		n.serverBaseURL, session.ID, cancelToken,
	)
}
