package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadtracker_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrDuplicate is matched by every *DuplicateError.
	ErrDuplicate = errors.New("duplicate lead")
	// ErrUnknownOwner means the owner id does not reference a user.
	ErrUnknownOwner = errors.New("unknown owner")
)

// DuplicateError reports which uniqueness key a write collided with.
type DuplicateError struct {
	Field string // "name" or "phone"
}

func (e *DuplicateError) Error() string { return fmt.Sprintf("duplicate lead %s", e.Field) }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

const (
	constraintNameKey  = "leads_name_key_uniq"
	constraintPhoneKey = "leads_phone_key_uniq"
)

// Keys are the duplicate-detection keys persisted next to a lead.
type Keys struct {
	NameKey  string
	PhoneKey string
}

// NewLead is a normalized lead ready to insert, with the history entries
// written alongside it.
type NewLead struct {
	Lead    domain.Lead
	Keys    Keys
	History []domain.HistoryEntry
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `
	l.id, l.owner_id, COALESCE(u.display_name, ''), l.customer_name, l.phone, l.source, l.channel_name, l.site_type,
	l.is_construction, l.unit_price, l.area, l.construction_fee, l.material_fee, l.shipping_fee, l.total_amount,
	l.stage, l.purchase_intent, l.sample_ref, l.order_ref, l.created_date, l.last_contact_date, l.next_contact_date,
	l.created_at, l.updated_at`

const leadFrom = `FROM leads l LEFT JOIN users u ON u.id = l.owner_id`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	var stage, intent string
	err := row.Scan(
		&lead.ID, &lead.OwnerID, &lead.OwnerName, &lead.CustomerName, &lead.Phone, &lead.Source, &lead.ChannelName, &lead.SiteType,
		&lead.IsConstruction, &lead.UnitPrice, &lead.Area, &lead.ConstructionFee, &lead.MaterialFee, &lead.ShippingFee, &lead.TotalAmount,
		&stage, &intent, &lead.SampleRef, &lead.OrderRef, &lead.CreatedDate, &lead.LastContactDate, &lead.NextContactDate,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	lead.Stage = domain.Stage(stage)
	lead.Intent = domain.Intent(intent)
	return lead, nil
}

// Create inserts a lead and its initial history in one transaction.
func (r *Repository) Create(ctx context.Context, in NewLead) (domain.Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := insertLead(ctx, tx, in)
	if err != nil {
		return domain.Lead{}, translateError(err)
	}
	for _, entry := range in.History {
		entry.LeadID = id
		if err := insertHistory(ctx, tx, entry); err != nil {
			return domain.Lead{}, err
		}
	}

	lead, err := getByID(ctx, tx, id, false)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

const insertLeadSQL = `
	INSERT INTO leads (
		owner_id, customer_name, name_key, phone, phone_key, source, channel_name, site_type,
		is_construction, unit_price, area, construction_fee, material_fee, shipping_fee, total_amount,
		stage, purchase_intent, sample_ref, order_ref, created_date, last_contact_date, next_contact_date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	RETURNING id`

func insertLeadArgs(in NewLead) []any {
	l := in.Lead
	return []any{
		l.OwnerID, l.CustomerName, in.Keys.NameKey, l.Phone, in.Keys.PhoneKey, l.Source, l.ChannelName, l.SiteType,
		l.IsConstruction, l.UnitPrice, l.Area, l.ConstructionFee, l.MaterialFee, l.ShippingFee, l.TotalAmount,
		string(l.Stage), string(l.Intent), l.SampleRef, l.OrderRef, l.CreatedDate, l.LastContactDate, l.NextContactDate,
	}
}

func insertLead(ctx context.Context, q querier, in NewLead) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, insertLeadSQL, insertLeadArgs(in)...).Scan(&id)
	return id, err
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Lead, error) {
	return getByID(ctx, r.pool, id, false)
}

func getByID(ctx context.Context, q querier, id int64, forUpdate bool) (domain.Lead, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE l.id = $1", leadColumns, leadFrom)
	if forUpdate {
		query += " FOR UPDATE OF l"
	}
	lead, err := scanLead(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// Change is what a mutation persists besides the lead's own columns.
type Change struct {
	// Keys is set when the customer name or phone changed.
	Keys    *Keys
	History []domain.HistoryEntry
}

// MutateFunc edits a locked lead in place. Returning an error aborts
// the transaction and the error is passed through unchanged.
type MutateFunc func(lead *domain.Lead) (Change, error)

// Mutate locks the lead row, applies fn and writes the full row plus any
// history entries in one transaction. Concurrent mutations of the same
// lead serialize on the row lock.
func (r *Repository) Mutate(ctx context.Context, id int64, fn MutateFunc) (domain.Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := getByID(ctx, tx, id, true)
	if err != nil {
		return domain.Lead{}, err
	}

	change, err := fn(&lead)
	if err != nil {
		return domain.Lead{}, err
	}

	if err := updateLead(ctx, tx, lead, change.Keys); err != nil {
		return domain.Lead{}, translateError(err)
	}
	for _, entry := range change.History {
		entry.LeadID = id
		if err := insertHistory(ctx, tx, entry); err != nil {
			return domain.Lead{}, err
		}
	}

	updated, err := getByID(ctx, tx, id, false)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return updated, nil
}

func updateLead(ctx context.Context, q querier, l domain.Lead, keys *Keys) error {
	setClauses := []string{
		"owner_id = $2", "customer_name = $3", "phone = $4", "source = $5", "channel_name = $6", "site_type = $7",
		"is_construction = $8", "unit_price = $9", "area = $10", "construction_fee = $11", "material_fee = $12",
		"shipping_fee = $13", "total_amount = $14", "stage = $15", "purchase_intent = $16", "sample_ref = $17",
		"order_ref = $18", "last_contact_date = $19", "next_contact_date = $20", "updated_at = now()",
	}
	args := []any{
		l.ID, l.OwnerID, l.CustomerName, l.Phone, l.Source, l.ChannelName, l.SiteType,
		l.IsConstruction, l.UnitPrice, l.Area, l.ConstructionFee, l.MaterialFee,
		l.ShippingFee, l.TotalAmount, string(l.Stage), string(l.Intent), l.SampleRef,
		l.OrderRef, l.LastContactDate, l.NextContactDate,
	}
	if keys != nil {
		setClauses = append(setClauses, "name_key = $21", "phone_key = $22")
		args = append(args, keys.NameKey, keys.PhoneKey)
	}

	query := fmt.Sprintf("UPDATE leads SET %s WHERE id = $1", strings.Join(setClauses, ", "))
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the lead; its history goes with it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListParams filters and pages List.
type ListParams struct {
	OwnerID       *uuid.UUID
	Stage         *domain.Stage
	Intent        *domain.Intent
	Channel       string
	Search        string
	OverdueBefore *time.Time
	SortBy        string
	SortOrder     string
	Limit         int
	Offset        int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortOrder := "DESC"
	if params.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, params.Offset)

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s %s NULLS LAST, l.id %s LIMIT $%d OFFSET $%d`,
		leadColumns, leadFrom, whereClause, mapLeadSortColumn(params.SortBy), sortOrder, sortOrder, argIdx, argIdx+1)

	leads, err := collectLeads(r.pool.Query(ctx, query, args...))
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// ListAll returns every lead ordered by id, for exports.
func (r *Repository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	return collectLeads(r.pool.Query(ctx, fmt.Sprintf("SELECT %s %s ORDER BY l.id", leadColumns, leadFrom)))
}

func collectLeads(rows pgx.Rows, err error) ([]domain.Lead, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func buildLeadListWhere(params ListParams) (string, []any, int) {
	whereClauses := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	addEquals := func(column string, value any) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if params.OwnerID != nil {
		addEquals("l.owner_id", *params.OwnerID)
	}
	if params.Stage != nil {
		addEquals("l.stage", string(*params.Stage))
	}
	if params.Intent != nil {
		addEquals("l.purchase_intent", string(*params.Intent))
	}
	if params.Channel != "" {
		addEquals("l.channel_name", params.Channel)
	}
	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(l.customer_name ILIKE $%d OR l.phone ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}
	if params.OverdueBefore != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.next_contact_date < $%d", argIdx))
		args = append(args, *params.OverdueBefore)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func mapLeadSortColumn(sortBy string) string {
	switch sortBy {
	case "customerName":
		return "l.customer_name"
	case "totalAmount":
		return "l.total_amount"
	case "lastContactDate":
		return "l.last_contact_date"
	case "nextContactDate":
		return "l.next_contact_date"
	case "createdDate":
		return "l.created_date"
	default:
		return "l.created_at"
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// translateError maps constraint violations onto repository sentinels.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case constraintPhoneKey:
			return &DuplicateError{Field: "phone"}
		case constraintNameKey:
			return &DuplicateError{Field: "name"}
		}
		return &DuplicateError{Field: "name"}
	case "23503":
		return ErrUnknownOwner
	}
	return err
}
