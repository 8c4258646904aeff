// Package reports aggregates the lead table for the dashboard.
package reports

import (
	"context"
	"fmt"
	"time"

	"leadtracker_backend/internal/leads/domain"

	"golang.org/x/sync/errgroup"
)

// Store is the set of aggregate queries a summary needs.
type Store interface {
	ByOwner(ctx context.Context) ([]OwnerTotal, error)
	ByChannel(ctx context.Context) ([]Bucket, error)
	ByStage(ctx context.Context) ([]Bucket, error)
	Overdue(ctx context.Context, today time.Time) (int, error)
}

// Summary is the dashboard payload.
type Summary struct {
	TotalLeads  int          `json:"totalLeads"`
	TotalAmount float64      `json:"totalAmount"`
	Overdue     int          `json:"overdue"`
	ByOwner     []OwnerTotal `json:"byOwner"`
	ByChannel   []Bucket     `json:"byChannel"`
	ByStage     []Bucket     `json:"byStage"`
}

type Service struct {
	store Store
	clock domain.Clock
}

func NewService(store Store, clock domain.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// Summary runs the aggregate queries concurrently. Stage buckets carry
// the operator-facing label as key.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		owners, err := s.store.ByOwner(gctx)
		if err != nil {
			return fmt.Errorf("leads by owner: %w", err)
		}
		out.ByOwner = owners
		return nil
	})
	g.Go(func() error {
		channels, err := s.store.ByChannel(gctx)
		if err != nil {
			return fmt.Errorf("leads by channel: %w", err)
		}
		out.ByChannel = channels
		return nil
	})
	g.Go(func() error {
		stages, err := s.store.ByStage(gctx)
		if err != nil {
			return fmt.Errorf("leads by stage: %w", err)
		}
		for i, b := range stages {
			if stage, ok := domain.ParseStage(b.Key); ok {
				stages[i].Key = stage.Label()
			}
		}
		out.ByStage = stages
		return nil
	})
	g.Go(func() error {
		n, err := s.store.Overdue(gctx, s.clock.Today())
		if err != nil {
			return fmt.Errorf("overdue leads: %w", err)
		}
		out.Overdue = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	for _, o := range out.ByOwner {
		out.TotalLeads += o.Leads
		out.TotalAmount += o.TotalAmount
	}
	return out, nil
}
