package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Owner is a user leads can be assigned to.
type Owner struct {
	ID          uuid.UUID
	DisplayName string
	Role        string
	Active      bool
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) List(ctx context.Context) ([]Owner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, role, is_active
		FROM users
		ORDER BY role, display_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]Owner, 0)
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.DisplayName, &o.Role, &o.Active); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return owners, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Owner, error) {
	var o Owner
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, role, is_active
		FROM users
		WHERE id = $1
	`, id).Scan(&o.ID, &o.DisplayName, &o.Role, &o.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Owner{}, ErrNotFound
	}
	if err != nil {
		return Owner{}, err
	}
	return o, nil
}

// Lookup returns the display name of id. The boolean is false when no
// such user exists.
func (r *Repository) Lookup(ctx context.Context, id uuid.UUID) (string, bool, error) {
	o, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return o.DisplayName, true, nil
}

// ResolveByName maps display names to user ids, ignoring case and
// surrounding whitespace. The result is keyed by the names as given;
// names matching nobody are left out.
func (r *Repository) ResolveByName(ctx context.Context, names []string) (map[string]uuid.UUID, error) {
	result := make(map[string]uuid.UUID, len(names))
	if len(names) == 0 {
		return result, nil
	}

	byKey := make(map[string][]string, len(names))
	keys := make([]string, 0, len(names))
	for _, name := range names {
		key := nameKey(name)
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], name)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lower(btrim(display_name))
		FROM users
		WHERE lower(btrim(display_name)) = ANY($1)
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  uuid.UUID
			key string
		)
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		for _, name := range byKey[key] {
			result[name] = id
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return result, nil
}

// EnsureUser creates the user unless its id or display name is taken.
// Existing rows are left untouched.
func (r *Repository) EnsureUser(ctx context.Context, o Owner) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, display_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`, o.ID, o.DisplayName, o.Role)
	return err
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
