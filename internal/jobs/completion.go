// Package jobs holds the background tickers: the completion sweep, the
// confirmation reminder and the old-session prune. Each job runs its first
// pass immediately on Start and then on its interval until Stop.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/repository"
)

const jobTimeout = 30 * time.Second

// CompletionJob sweeps sessions whose end time has passed into the
// completed state.
type CompletionJob struct {
	sessionRepo repository.SessionRepository
	interval    time.Duration
	done        chan struct{}
}

func NewCompletionJob(sessionRepo repository.SessionRepository, interval time.Duration) *CompletionJob {
	return &CompletionJob{
		sessionRepo: sessionRepo,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *CompletionJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("completion job started")
}

func (j *CompletionJob) Stop() {
	close(j.done)
	log.Info().Msg("completion job stopped")
}

func (j *CompletionJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *CompletionJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := j.sessionRepo.CompleteFinished(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to complete finished sessions")
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("sessions completed")
	}
}
