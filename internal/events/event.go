// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadtracker_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a representative or admin creates a lead.
type LeadCreated struct {
	BaseEvent
	LeadID       int64     `json:"leadId"`
	OwnerID      uuid.UUID `json:"ownerId"`
	ActorID      uuid.UUID `json:"actorId"`
	CustomerName string    `json:"customerName"`
	ChannelName  string    `json:"channelName"`
	Coerced      []string  `json:"coerced,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// FollowUpLogged is published after a follow-up entry was appended.
type FollowUpLogged struct {
	BaseEvent
	LeadID  int64     `json:"leadId"`
	ActorID uuid.UUID `json:"actorId"`
	Stage   string    `json:"stage"`
	Intent  string    `json:"intent"`
}

func (e FollowUpLogged) EventName() string { return "leads.follow_up.logged" }

// Reassignment triggers.
const (
	TriggerManual = "manual"
	TriggerSweep  = "sweep"
)

// LeadReassigned is published whenever a lead changes owner.
type LeadReassigned struct {
	BaseEvent
	LeadID        int64     `json:"leadId"`
	PreviousOwner uuid.UUID `json:"previousOwner"`
	NewOwner      uuid.UUID `json:"newOwner"`
	Trigger       string    `json:"trigger"`
}

func (e LeadReassigned) EventName() string { return "leads.lead.reassigned" }

// LeadDeleted is published after an administrative delete.
type LeadDeleted struct {
	BaseEvent
	LeadID  int64     `json:"leadId"`
	ActorID uuid.UUID `json:"actorId"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// LeadsImported is published after a bulk import committed.
type LeadsImported struct {
	BaseEvent
	ActorID  uuid.UUID `json:"actorId"`
	Rows     int       `json:"rows"`
	Inserted int       `json:"inserted"`
	Skipped  int       `json:"skipped"`
}

func (e LeadsImported) EventName() string { return "leads.import.completed" }

// StaleSweepCompleted is published after every sweep pass that ran.
type StaleSweepCompleted struct {
	BaseEvent
	Trigger    string `json:"trigger"`
	Candidates int    `json:"candidates"`
	Reassigned int    `json:"reassigned"`
	ElapsedMs  int64  `json:"elapsedMs"`
	Failed     bool   `json:"failed"`
}

func (e StaleSweepCompleted) EventName() string { return "leads.sweep.completed" }
