package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/repository"
)

// Sweeper is the part of the validator the job needs.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SweepJob periodically deactivates expired codes and prunes old audit
// rows. Validation also lazy-expires codes on its own, so the job only
// has to keep the backlog bounded; any schedule converges to the same
// state.
type SweepJob struct {
	sweeper      Sweeper
	logRepo      repository.UsageLogRepository
	interval     time.Duration
	logRetention time.Duration
	done         chan struct{}
}

func NewSweepJob(
	sweeper Sweeper,
	logRepo repository.UsageLogRepository,
	interval time.Duration,
	logRetention time.Duration,
) *SweepJob {
	return &SweepJob{
		sweeper:      sweeper,
		logRepo:      logRepo,
		interval:     interval,
		logRetention: logRetention,
		done:         make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
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

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runTask(ctx, "expired codes", j.sweeper.Sweep)
	j.runTask(ctx, "old usage logs", func(ctx context.Context) (int64, error) {
		return j.logRepo.DeleteOlderThan(ctx, time.Now().Add(-j.logRetention))
	})
}

func (j *SweepJob) runTask(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept %s", name)
	}
}
