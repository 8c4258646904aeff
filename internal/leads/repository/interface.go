package repository

import (
	"context"
	"time"

	"leadtracker_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id int64) (domain.Lead, error)
	List(ctx context.Context, params ListParams) ([]domain.Lead, int, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, in NewLead) (domain.Lead, error)
	Mutate(ctx context.Context, id int64, fn MutateFunc) (domain.Lead, error)
	Delete(ctx context.Context, id int64) error
}

// DuplicateFinder looks up existing leads by duplicate key.
type DuplicateFinder interface {
	FindDuplicate(ctx context.Context, nameKey, phoneKey string) (*DuplicateMatch, error)
	FindDuplicates(ctx context.Context, nameKeys, phoneKeys []string) ([]DuplicateMatch, error)
}

// HistoryStore reads and appends history entries.
type HistoryStore interface {
	ListHistory(ctx context.Context, leadID int64) ([]domain.HistoryEntry, error)
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
}

// StaleStore backs the staleness sweep.
type StaleStore interface {
	ListStaleCandidates(ctx context.Context, fallback uuid.UUID, cutoff time.Time, limit int) ([]StaleCandidate, error)
	ReassignIfStale(ctx context.Context, leadID int64, fallback uuid.UUID, cutoff time.Time, entry EntryFunc) (bool, error)
}

// BatchWriter backs bulk ingestion.
type BatchWriter interface {
	InsertBatch(ctx context.Context, leads []NewLead) (int, error)
}

// LeadsRepository is the full lead store.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	DuplicateFinder
	HistoryStore
	StaleStore
	BatchWriter
	ListAll(ctx context.Context) ([]domain.Lead, error)
	ListAllHistory(ctx context.Context) (map[int64][]domain.HistoryEntry, error)
}

var _ LeadsRepository = (*Repository)(nil)
