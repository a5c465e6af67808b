package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/events"
	"github.com/therapease/booking-server-go/internal/model"
	"github.com/therapease/booking-server-go/internal/repository"
)

// ReminderJob nudges users whose booking is still pending shortly before
// the session starts. One session failing to produce a reminder does not
// stop the rest of the batch.
type ReminderJob struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	bus         *events.Bus
	window      time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewReminderJob(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	bus *events.Bus,
	window, interval time.Duration,
) *ReminderJob {
	return &ReminderJob{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		bus:         bus,
		window:      window,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *ReminderJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("reminder job started")
}

func (j *ReminderJob) Stop() {
	close(j.done)
	log.Info().Msg("reminder job stopped")
}

func (j *ReminderJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.remind()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.remind()
		}
	}
}

func (j *ReminderJob) remind() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	now := time.Now()
	pending, err := j.sessionRepo.FindMany(ctx, model.SessionFilter{
		Status:   model.SessionStatusPending,
		DateFrom: now,
		DateTo:   now.Add(j.window),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load pending sessions for reminders")
		return
	}

	sent := 0
	for _, session := range pending {
		if session.UserID == nil {
			continue
		}

		user, err := j.userRepo.FindByID(ctx, *session.UserID)
		if err != nil {
			log.Error().Err(err).Str("sessionId", session.ID).Msg("failed to load user for reminder")
			continue
		}
		if user == nil {
			log.Warn().Str("sessionId", session.ID).Msg("pending session references a missing user")
			continue
		}

		j.bus.Publish(events.ConfirmationDue{Session: session, Email: user.Email})
		sent++
	}

	if sent > 0 {
		log.Info().Int("count", sent).Msg("confirmation reminders sent")
	}
}
