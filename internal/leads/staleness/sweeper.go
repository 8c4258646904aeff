// Package staleness reassigns leads nobody has contacted for too long.
package staleness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	defaultThresholdDays = 20
	defaultBatchLimit    = 1000
	jobName              = "stale_sweep"
)

// Store is what the sweeper needs from the lead store.
type Store interface {
	ListStaleCandidates(ctx context.Context, fallback uuid.UUID, cutoff time.Time, limit int) ([]repository.StaleCandidate, error)
	ReassignIfStale(ctx context.Context, leadID int64, fallback uuid.UUID, cutoff time.Time, entry repository.EntryFunc) (bool, error)
}

// Config holds the sweep policy.
type Config struct {
	ThresholdDays int
	FallbackOwner uuid.UUID
	// FallbackName is shown in history entries. Optional.
	FallbackName string
	BatchLimit   int
	Clock        domain.Clock
}

// Result summarizes one pass.
type Result struct {
	Candidates int
	Reassigned int
	// Skipped is set when another pass held the lock.
	Skipped bool
}

// Sweeper finds stale leads and hands them to the fallback owner.
type Sweeper struct {
	store   Store
	cfg     Config
	locker  Locker
	bus     events.Bus
	metrics *metrics.LeadMetrics
	log     *logger.Logger
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithLocker serializes passes through l.
func WithLocker(l Locker) Option {
	return func(s *Sweeper) { s.locker = l }
}

// WithMetrics records pass outcomes on m.
func WithMetrics(m *metrics.LeadMetrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func NewSweeper(store Store, bus events.Bus, log *logger.Logger, cfg Config, opts ...Option) *Sweeper {
	if cfg.ThresholdDays <= 0 {
		cfg.ThresholdDays = defaultThresholdDays
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	if log == nil {
		log = logger.Discard()
	}
	s := &Sweeper{store: store, cfg: cfg, bus: bus, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cutoff is the first contact date that is not yet stale. A lead is stale
// when its contact anchor lies strictly before it.
func (s *Sweeper) Cutoff(today time.Time) time.Time {
	return today.AddDate(0, 0, -s.cfg.ThresholdDays)
}

// Run performs one pass. Each lead is re-checked and reassigned in its own
// transaction, so a pass that fails halfway leaves finished leads moved and
// running it again only picks up the rest. Per-lead failures do not stop
// the pass; they are joined into the returned error.
func (s *Sweeper) Run(ctx context.Context, trigger string) (Result, error) {
	start := time.Now()

	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !acquired {
			s.log.Info("staleness sweep skipped, another pass is running", slog.String("trigger", trigger))
			return Result{Skipped: true}, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release sweep lock failed", slog.String("error", err.Error()))
			}
		}()
	}

	result, err := s.sweep(ctx)
	elapsed := time.Since(start)

	s.metrics.ObserveJob(jobName, elapsed, err)
	s.metrics.Reassigned(events.TriggerSweep, result.Reassigned)
	s.log.WithContext(ctx).SweepCompleted(trigger, result.Candidates, result.Reassigned, elapsed)
	if err != nil {
		s.log.Error("staleness sweep finished with errors", slog.String("error", err.Error()))
	}

	s.bus.Publish(ctx, events.StaleSweepCompleted{
		BaseEvent:  events.NewBaseEvent(),
		Trigger:    trigger,
		Candidates: result.Candidates,
		Reassigned: result.Reassigned,
		ElapsedMs:  elapsed.Milliseconds(),
		Failed:     err != nil,
	})
	return result, err
}

func (s *Sweeper) sweep(ctx context.Context) (Result, error) {
	today := s.cfg.Clock.Today()
	cutoff := s.Cutoff(today)

	candidates, err := s.store.ListStaleCandidates(ctx, s.cfg.FallbackOwner, cutoff, s.cfg.BatchLimit)
	if err != nil {
		return Result{}, fmt.Errorf("list stale candidates: %w", err)
	}

	result := Result{Candidates: len(candidates)}
	var errs []error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var previous repository.StaleCandidate
		moved, err := s.store.ReassignIfStale(ctx, c.LeadID, s.cfg.FallbackOwner, cutoff, func(prev repository.StaleCandidate) domain.HistoryEntry {
			previous = prev
			return s.entry(prev, today)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("lead %d: %w", c.LeadID, err))
			continue
		}
		if !moved {
			continue
		}

		result.Reassigned++
		s.bus.Publish(ctx, events.LeadReassigned{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        c.LeadID,
			PreviousOwner: previous.OwnerID,
			NewOwner:      s.cfg.FallbackOwner,
			Trigger:       events.TriggerSweep,
		})
	}
	return result, errors.Join(errs...)
}

func (s *Sweeper) entry(prev repository.StaleCandidate, today time.Time) domain.HistoryEntry {
	idle := int(today.Sub(prev.ContactDate).Hours() / 24)
	previousOwner := prev.OwnerName
	if previousOwner == "" {
		previousOwner = prev.OwnerID.String()
	}
	target := s.cfg.FallbackName
	if target == "" {
		target = "公共池"
	}
	body := fmt.Sprintf("%s 超过 %d 天未跟进（最后联系 %s），%s 由 %s 自动移交至 %s",
		prev.CustomerName, idle, prev.ContactDate.Format("2006-01-02"), today.Format("2006-01-02"), previousOwner, target)
	return domain.SystemEntry(domain.HistoryReassignment, body, s.cfg.Clock.Instant())
}
