// Package followup appends contact entries to a lead's history.
package followup

import (
	"context"
	"errors"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/management"
	"leadtracker_backend/internal/leads/normalize"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/transport"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/sanitize"
)

// Repository is what the ledger needs from the lead store.
type Repository interface {
	Mutate(ctx context.Context, id int64, fn repository.MutateFunc) (domain.Lead, error)
	ListHistory(ctx context.Context, leadID int64) ([]domain.HistoryEntry, error)
}

// Ledger records follow-ups.
type Ledger struct {
	repo  Repository
	bus   events.Bus
	clock domain.Clock
}

func New(repo Repository, bus events.Bus, clock domain.Clock) *Ledger {
	return &Ledger{repo: repo, bus: bus, clock: clock}
}

// Append logs one contact with the lead. In the same transaction it moves
// the last contact date to today (never backwards), sets the next contact
// date when one is supplied and overwrites stage and intent when given.
func (l *Ledger) Append(ctx context.Context, actor domain.Actor, leadID int64, req transport.FollowUpRequest) (transport.LeadResponse, error) {
	note := sanitize.Text(req.Note)
	if note == "" {
		return transport.LeadResponse{}, apperr.Validation("note is required")
	}

	var stage *domain.Stage
	if req.Stage != "" {
		s, ok := domain.ParseStage(req.Stage)
		if !ok || s == domain.StageEscalated {
			return transport.LeadResponse{}, apperr.Validation("invalid stage")
		}
		stage = &s
	}
	var intent *domain.Intent
	if req.PurchaseIntent != "" {
		i, ok := domain.ParseIntent(req.PurchaseIntent)
		if !ok {
			return transport.LeadResponse{}, apperr.Validation("invalid purchase intent")
		}
		intent = &i
	}

	today := l.clock.Today()
	at := l.clock.Instant()
	var warnings normalize.Warnings

	updated, err := l.repo.Mutate(ctx, leadID, func(lead *domain.Lead) (repository.Change, error) {
		if !actor.CanModify(*lead) {
			return repository.Change{}, apperr.Forbidden("not authorized")
		}

		lead.LastContactDate = laterOf(lead.LastContactDate, today)
		switch {
		case req.NextContactDate.IsNull():
			lead.NextContactDate = nil
		case req.NextContactDate.Set:
			if d := warnings.Date("nextContactDate", req.NextContactDate.Value, normalize.DateFallbackNone, today); d != nil {
				lead.NextContactDate = d
			}
		}
		if stage != nil {
			lead.Stage = *stage
		}
		if intent != nil {
			lead.Intent = *intent
		}

		return repository.Change{
			History: []domain.HistoryEntry{domain.NewEntry(domain.HistoryFollowUp, actor, note, at)},
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	history, err := l.repo.ListHistory(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	l.bus.Publish(ctx, events.FollowUpLogged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		ActorID:   actor.UserID,
		Stage:     string(updated.Stage),
		Intent:    string(updated.Intent),
	})

	resp := management.ToLeadResponse(updated, today)
	resp.FollowUpHistory = management.ToHistoryResponses(history, l.clock.Location)
	resp.Warnings = warnings
	return resp, nil
}

func laterOf(current *time.Time, today time.Time) *time.Time {
	if current != nil && current.After(today) {
		v := *current
		return &v
	}
	return &today
}
