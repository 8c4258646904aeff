package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OwnerTotal aggregates the leads held by one owner.
type OwnerTotal struct {
	OwnerID     uuid.UUID `json:"ownerId"`
	OwnerName   string    `json:"ownerName"`
	Leads       int       `json:"leads"`
	TotalAmount float64   `json:"totalAmount"`
}

// Bucket is a lead count for one value of a grouping column.
type Bucket struct {
	Key   string `json:"key"`
	Leads int    `json:"leads"`
}

// Repository runs the aggregate queries behind the summary.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ByOwner(ctx context.Context) ([]OwnerTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.owner_id, COALESCE(u.display_name, ''), COUNT(*), COALESCE(SUM(l.total_amount), 0)::float8
		FROM leads l
		LEFT JOIN users u ON u.id = l.owner_id
		GROUP BY l.owner_id, u.display_name
		ORDER BY COUNT(*) DESC, u.display_name
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OwnerTotal, error) {
		var t OwnerTotal
		err := row.Scan(&t.OwnerID, &t.OwnerName, &t.Leads, &t.TotalAmount)
		return t, err
	})
}

func (r *Repository) ByChannel(ctx context.Context) ([]Bucket, error) {
	return r.buckets(ctx, `
		SELECT channel_name, COUNT(*)
		FROM leads
		GROUP BY channel_name
		ORDER BY COUNT(*) DESC, channel_name
	`)
}

func (r *Repository) ByStage(ctx context.Context) ([]Bucket, error) {
	return r.buckets(ctx, `
		SELECT stage, COUNT(*)
		FROM leads
		GROUP BY stage
		ORDER BY stage
	`)
}

// Overdue counts leads whose next contact date lies before today.
func (r *Repository) Overdue(ctx context.Context, today time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE next_contact_date < $1
	`, today).Scan(&n)
	return n, err
}

func (r *Repository) buckets(ctx context.Context, query string) ([]Bucket, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Bucket, error) {
		var b Bucket
		err := row.Scan(&b.Key, &b.Leads)
		return b, err
	})
}
