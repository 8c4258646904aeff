// Package domain holds the lead entity and its vocabularies.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lead is a prospective or in-progress customer record.
// Dates are calendar dates stored as UTC midnight.
type Lead struct {
	ID        int64
	OwnerID   uuid.UUID
	OwnerName string

	CustomerName   string
	Phone          string
	Source         string
	ChannelName    string
	SiteType       string
	IsConstruction bool

	UnitPrice       float64
	Area            float64
	ConstructionFee float64
	MaterialFee     float64
	ShippingFee     float64
	TotalAmount     float64

	Stage     Stage
	Intent    Intent
	SampleRef string
	OrderRef  string

	CreatedDate     time.Time
	LastContactDate *time.Time
	NextContactDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactAnchor is the date staleness is measured from.
func (l Lead) ContactAnchor() time.Time {
	if l.LastContactDate != nil {
		return *l.LastContactDate
	}
	return l.CreatedDate
}

// IsOverdue reports whether the planned next contact lies before today.
func (l Lead) IsOverdue(today time.Time) bool {
	return l.NextContactDate != nil && l.NextContactDate.Before(today)
}

// HistoryKind tags the origin of a history entry.
type HistoryKind string

const (
	HistoryCreated      HistoryKind = "created"
	HistoryFollowUp     HistoryKind = "follow_up"
	HistoryReassignment HistoryKind = "reassignment"
	HistoryImported     HistoryKind = "imported"
)

// HistoryEntry is one immutable line of a lead's history.
// ActorID is nil for entries written by the system.
type HistoryEntry struct {
	ID         int64
	LeadID     int64
	Kind       HistoryKind
	ActorID    *uuid.UUID
	ActorName  string
	Body       string
	OccurredAt time.Time
}

// Line renders the entry the way operators read it.
func (h HistoryEntry) Line(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("[%s] %s: %s", h.OccurredAt.In(loc).Format("2006-01-02 15:04"), h.ActorName, h.Body)
}

// NewEntry builds an entry attributed to actor.
func NewEntry(kind HistoryKind, actor Actor, body string, at time.Time) HistoryEntry {
	id := actor.UserID
	return HistoryEntry{Kind: kind, ActorID: &id, ActorName: actor.Name, Body: body, OccurredAt: at}
}

// SystemEntry builds an entry written by a background job.
func SystemEntry(kind HistoryKind, body string, at time.Time) HistoryEntry {
	return HistoryEntry{Kind: kind, ActorName: SystemActorName, Body: body, OccurredAt: at}
}
