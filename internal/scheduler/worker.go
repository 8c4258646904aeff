package scheduler

import (
	"context"
	"fmt"

	"leadtracker_backend/internal/leads/staleness"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper runs one staleness pass.
type Sweeper interface {
	Run(ctx context.Context, trigger string) (staleness.Result, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper Sweeper
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(sweeper, log)
	w.server = server
	return w, nil
}

func newWorker(sweeper Sweeper, log *logger.Logger) *Worker {
	w := &Worker{
		mux:     asynq.NewServeMux(),
		sweeper: sweeper,
		log:     log,
	}
	w.mux.HandleFunc(TaskStaleSweep, w.handleStaleSweep)
	return w
}

// Run processes sweep tasks until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return
	}
	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
}

// handleStaleSweep runs the pass. A pass skipped because another holds
// the lock is not an error; partial failures are returned so asynq
// retries and the retry only picks up the remaining leads.
func (w *Worker) handleStaleSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseStaleSweepPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	result, err := w.sweeper.Run(ctx, payload.Trigger)
	if err != nil {
		return err
	}
	if result.Skipped {
		w.log.Info("stale sweep skipped", "trigger", payload.Trigger)
	}
	return nil
}
