package repository

import (
	"context"
	"errors"
	"time"

	"leadtracker_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StaleCandidate is a lead eligible for reassignment at read time.
type StaleCandidate struct {
	LeadID       int64
	OwnerID      uuid.UUID
	OwnerName    string
	CustomerName string
	ContactDate  time.Time
}

const staleCondition = `
	l.owner_id <> $1
	AND l.purchase_intent <> 'won'
	AND COALESCE(l.last_contact_date, l.created_date) < $2`

// ListStaleCandidates returns leads whose contact anchor lies before
// cutoff, not won and not already held by fallback, oldest first.
func (r *Repository) ListStaleCandidates(ctx context.Context, fallback uuid.UUID, cutoff time.Time, limit int) ([]StaleCandidate, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.owner_id, COALESCE(u.display_name, ''), l.customer_name, COALESCE(l.last_contact_date, l.created_date)
		FROM leads l
		LEFT JOIN users u ON u.id = l.owner_id
		WHERE `+staleCondition+`
		ORDER BY COALESCE(l.last_contact_date, l.created_date) ASC, l.id ASC
		LIMIT $3
	`, fallback, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]StaleCandidate, 0)
	for rows.Next() {
		var c StaleCandidate
		if err := rows.Scan(&c.LeadID, &c.OwnerID, &c.OwnerName, &c.CustomerName, &c.ContactDate); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candidates, nil
}

// EntryFunc builds the history entry for a reassignment once the
// previous owner is known.
type EntryFunc func(previous StaleCandidate) domain.HistoryEntry

// ReassignIfStale moves the lead to fallback and marks it escalated, but
// only if it still satisfies the staleness condition under a row lock.
// Returns false when the lead is no longer eligible or no longer exists.
func (r *Repository) ReassignIfStale(ctx context.Context, leadID int64, fallback uuid.UUID, cutoff time.Time, entry EntryFunc) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prev StaleCandidate
	err = tx.QueryRow(ctx, `
		SELECT l.id, l.owner_id, COALESCE(u.display_name, ''), l.customer_name, COALESCE(l.last_contact_date, l.created_date)
		FROM leads l
		LEFT JOIN users u ON u.id = l.owner_id
		WHERE l.id = $3 AND `+staleCondition+`
		FOR UPDATE OF l
	`, fallback, cutoff, leadID).Scan(&prev.LeadID, &prev.OwnerID, &prev.OwnerName, &prev.CustomerName, &prev.ContactDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE leads SET owner_id = $2, stage = $3, updated_at = now()
		WHERE id = $1
	`, leadID, fallback, string(domain.StageEscalated)); err != nil {
		return false, translateError(err)
	}

	e := entry(prev)
	e.LeadID = leadID
	if err := insertHistory(ctx, tx, e); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
