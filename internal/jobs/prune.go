package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/therapease/booking-server-go/internal/repository"
)

// PruneJob deletes sessions older than the retention period.
type PruneJob struct {
	sessionRepo repository.SessionRepository
	retention   time.Duration
	interval    time.Duration
	done        chan struct{}
}

func NewPruneJob(sessionRepo repository.SessionRepository, retention, interval time.Duration) *PruneJob {
	return &PruneJob{
		sessionRepo: sessionRepo,
		retention:   retention,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *PruneJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("prune job started")
}

func (j *PruneJob) Stop() {
	close(j.done)
	log.Info().Msg("prune job stopped")
}

func (j *PruneJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.prune()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.prune()
		}
	}
}

func (j *PruneJob) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	count, err := j.sessionRepo.DeleteOlderThan(ctx, time.Now().Add(-j.retention))
	if err != nil {
		log.Error().Err(err).Msg("failed to prune old sessions")
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("old sessions pruned")
	}
}
