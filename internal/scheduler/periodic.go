package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the stale sweep on the configured cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic registers the sweep under cfg's SWEEP_CRON, evaluated in
// loc so "0 6 * * *" means six in the morning business time.
func NewPeriodic(cfg config.SchedulerConfig, loc *time.Location, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: loc,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("enqueue scheduled sweep failed", "error", err)
				return
			}
			log.Debug("scheduled sweep enqueued", "taskId", info.ID)
		},
	})

	task, err := NewStaleSweepTask(StaleSweepPayload{Trigger: TriggerSchedule})
	if err != nil {
		return nil, err
	}
	if _, err := s.Register(cfg.GetSweepCron(), task, asynq.Queue(queueName(cfg))); err != nil {
		return nil, fmt.Errorf("register sweep cron %q: %w", cfg.GetSweepCron(), err)
	}

	return &Periodic{scheduler: s, log: log}, nil
}

// Run starts the scheduler and blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
