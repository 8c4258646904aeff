package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameKey(t *testing.T) {
	assert.Equal(t, "范秋菊", nameKey("  范秋菊 "))
	assert.Equal(t, "alice", nameKey("Alice"))
	assert.Equal(t, "", nameKey("   "))
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return New(pool)
}

func TestResolveByNameIgnoresCaseAndSpacing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := uuid.New()
	name := "Owner " + id.String()[:8]
	require.NoError(t, repo.EnsureUser(ctx, Owner{ID: id, DisplayName: name, Role: "representative"}))
	t.Cleanup(func() { _, _ = repo.pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id) })

	resolved, err := repo.ResolveByName(ctx, []string{"  " + name + " ", "nobody-" + id.String()})
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{"  " + name + " ": id}, resolved)

	got, ok, err := repo.Lookup(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, name, got)

	_, ok, err = repo.Lookup(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
