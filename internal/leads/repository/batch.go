package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const insertImportedHistorySQL = `
	INSERT INTO lead_history (lead_id, kind, actor_id, actor_name, body, occurred_at)
	SELECT currval(pg_get_serial_sequence('leads', 'id')), $1, $2, $3, $4, $5`

// InsertBatch inserts every lead with its history in one transaction.
// Any failure rolls back the whole batch.
func (r *Repository) InsertBatch(ctx context.Context, leads []NewLead) (int, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, in := range leads {
		batch.Queue(insertLeadSQL, insertLeadArgs(in)...)
		for _, entry := range in.History {
			batch.Queue(insertImportedHistorySQL, string(entry.Kind), entry.ActorID, entry.ActorName, entry.Body, entry.OccurredAt)
		}
	}

	results := tx.SendBatch(ctx, batch)
	for i, in := range leads {
		var id int64
		if err := results.QueryRow().Scan(&id); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("row %d (%s): %w", i+1, in.Lead.CustomerName, translateError(err))
		}
		for range in.History {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return 0, fmt.Errorf("row %d history: %w", i+1, translateError(err))
			}
		}
	}
	if err := results.Close(); err != nil {
		return 0, translateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(leads), nil
}
