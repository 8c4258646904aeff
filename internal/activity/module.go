// Package activity turns lead domain events into metrics and audit log
// lines. It owns no routes.
package activity

import (
	"context"
	"log/slog"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/metrics"
)

// Module subscribes to lead events.
type Module struct {
	metrics *metrics.LeadMetrics
	log     *logger.Logger
}

func New(m *metrics.LeadMetrics, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	return &Module{metrics: m, log: log}
}

// RegisterHandlers subscribes the module to every lead event.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.FollowUpLogged{}.EventName(), m)
	bus.Subscribe(events.LeadReassigned{}.EventName(), m)
	bus.Subscribe(events.LeadDeleted{}.EventName(), m)
	bus.Subscribe(events.LeadsImported{}.EventName(), m)
	bus.Subscribe(events.StaleSweepCompleted{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	log := m.log.WithContext(ctx).With(slog.String("event_id", event.EventID().String()))
	switch e := event.(type) {
	case events.LeadCreated:
		m.metrics.LeadCreated(e.ChannelName)
		log.Info("lead_created",
			slog.Int64("lead_id", e.LeadID),
			slog.String("owner_id", e.OwnerID.String()),
			slog.String("actor_id", e.ActorID.String()),
			slog.Any("coerced", e.Coerced),
		)
	case events.FollowUpLogged:
		m.metrics.FollowUpLogged()
		log.Info("follow_up_logged",
			slog.Int64("lead_id", e.LeadID),
			slog.String("actor_id", e.ActorID.String()),
			slog.String("stage", e.Stage),
			slog.String("intent", e.Intent),
		)
	case events.LeadReassigned:
		// The sweeper counts its own reassignments per pass.
		if e.Trigger != events.TriggerSweep {
			m.metrics.Reassigned(e.Trigger, 1)
		}
		log.Info("lead_reassigned",
			slog.Int64("lead_id", e.LeadID),
			slog.String("from", e.PreviousOwner.String()),
			slog.String("to", e.NewOwner.String()),
			slog.String("trigger", e.Trigger),
		)
	case events.LeadDeleted:
		log.Warn("lead_deleted",
			slog.Int64("lead_id", e.LeadID),
			slog.String("actor_id", e.ActorID.String()),
		)
	case events.LeadsImported:
		log.Info("leads_imported",
			slog.String("actor_id", e.ActorID.String()),
			slog.Int("rows", e.Rows),
			slog.Int("inserted", e.Inserted),
			slog.Int("skipped", e.Skipped),
		)
	case events.StaleSweepCompleted:
		if e.Failed {
			log.Warn("stale_sweep_incomplete", slog.String("trigger", e.Trigger), slog.Int("reassigned", e.Reassigned))
		}
	}
	return nil
}
