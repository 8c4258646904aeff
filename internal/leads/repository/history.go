package repository

import (
	"context"
	"errors"

	"leadtracker_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func insertHistory(ctx context.Context, q querier, entry domain.HistoryEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO lead_history (lead_id, kind, actor_id, actor_name, body, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.LeadID, string(entry.Kind), entry.ActorID, entry.ActorName, entry.Body, entry.OccurredAt)
	return err
}

// AppendHistory adds one entry outside of any lead mutation.
func (r *Repository) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	err := insertHistory(ctx, r.pool, entry)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrNotFound
	}
	return err
}

// ListHistory returns a lead's entries oldest first.
func (r *Repository) ListHistory(ctx context.Context, leadID int64) ([]domain.HistoryEntry, error) {
	return collectHistory(r.pool.Query(ctx, `
		SELECT id, lead_id, kind, actor_id, actor_name, body, occurred_at
		FROM lead_history
		WHERE lead_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, leadID))
}

// ListAllHistory returns every entry grouped by lead, oldest first.
func (r *Repository) ListAllHistory(ctx context.Context) (map[int64][]domain.HistoryEntry, error) {
	entries, err := collectHistory(r.pool.Query(ctx, `
		SELECT id, lead_id, kind, actor_id, actor_name, body, occurred_at
		FROM lead_history
		ORDER BY lead_id ASC, occurred_at ASC, id ASC
	`))
	if err != nil {
		return nil, err
	}
	byLead := make(map[int64][]domain.HistoryEntry)
	for _, e := range entries {
		byLead[e.LeadID] = append(byLead[e.LeadID], e)
	}
	return byLead, nil
}

func collectHistory(rows pgx.Rows, err error) ([]domain.HistoryEntry, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.LeadID, &kind, &entry.ActorID, &entry.ActorName, &entry.Body, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entry.Kind = domain.HistoryKind(kind)
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}
