// Package leads provides lead tracking functionality.
// This file defines the public API of the leads bounded context.
// Only types and interfaces defined here should be imported by other domains.
package leads

import (
	"context"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
)

// Reader defines the read-only view of the lead store other domains may
// depend on. Exports use it to dump the whole table.
type Reader interface {
	// ListAll returns every lead ordered by id.
	ListAll(ctx context.Context) ([]domain.Lead, error)
	// ListAllHistory returns every history entry keyed by lead id.
	ListAllHistory(ctx context.Context) (map[int64][]domain.HistoryEntry, error)
}

var _ Reader = (*repository.Repository)(nil)
