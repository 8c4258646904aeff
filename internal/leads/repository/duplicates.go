package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DuplicateMatch identifies an existing lead that collides with a key.
type DuplicateMatch struct {
	LeadID    int64
	OwnerID   uuid.UUID
	OwnerName string
	Field     string // "name" or "phone"
	NameKey   string
	PhoneKey  string
}

// FindDuplicate returns the first lead matching nameKey, or phoneKey when
// it is non-empty. A name match wins over a phone match. Returns nil when
// nothing matches.
func (r *Repository) FindDuplicate(ctx context.Context, nameKey, phoneKey string) (*DuplicateMatch, error) {
	var m DuplicateMatch
	err := r.pool.QueryRow(ctx, `
		SELECT l.id, l.owner_id, COALESCE(u.display_name, ''), l.name_key, l.phone_key,
			CASE WHEN l.name_key = $1 THEN 'name' ELSE 'phone' END
		FROM leads l
		LEFT JOIN users u ON u.id = l.owner_id
		WHERE l.name_key = $1 OR ($2 <> '' AND l.phone_key = $2)
		ORDER BY (l.name_key = $1) DESC, l.id ASC
		LIMIT 1
	`, nameKey, phoneKey).Scan(&m.LeadID, &m.OwnerID, &m.OwnerName, &m.NameKey, &m.PhoneKey, &m.Field)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindDuplicates returns every lead whose name key or phone key appears in
// the given sets. Used to screen an import batch in one round trip.
func (r *Repository) FindDuplicates(ctx context.Context, nameKeys, phoneKeys []string) ([]DuplicateMatch, error) {
	if len(nameKeys) == 0 && len(phoneKeys) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.owner_id, COALESCE(u.display_name, ''), l.name_key, l.phone_key,
			CASE WHEN l.name_key = ANY($1) THEN 'name' ELSE 'phone' END
		FROM leads l
		LEFT JOIN users u ON u.id = l.owner_id
		WHERE l.name_key = ANY($1) OR (l.phone_key <> '' AND l.phone_key = ANY($2))
	`, nameKeys, phoneKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]DuplicateMatch, 0)
	for rows.Next() {
		var m DuplicateMatch
		if err := rows.Scan(&m.LeadID, &m.OwnerID, &m.OwnerName, &m.NameKey, &m.PhoneKey, &m.Field); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return matches, nil
}
