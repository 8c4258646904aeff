// Package owners provides the directory of users leads can be assigned to.
package owners

import (
	"context"
	"fmt"

	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/owners/handler"
	"leadtracker_backend/internal/owners/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FallbackOwnerName is used when the fallback owner has to be created.
const FallbackOwnerName = "公共池"

// Module is the owners module implementing http.Module.
type Module struct {
	repo    *repository.Repository
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	return &Module{repo: repo, handler: handler.New(repo)}
}

func (m *Module) Name() string {
	return "owners"
}

// Repository exposes name resolution to the leads module.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// EnsureFallbackOwner makes sure stale leads have somewhere to go and
// returns the owner's display name.
func (m *Module) EnsureFallbackOwner(ctx context.Context, id uuid.UUID) (string, error) {
	if err := m.repo.EnsureUser(ctx, repository.Owner{ID: id, DisplayName: FallbackOwnerName, Role: "admin"}); err != nil {
		return "", fmt.Errorf("ensure fallback owner: %w", err)
	}
	name, ok, err := m.repo.Lookup(ctx, id)
	if err != nil {
		return "", fmt.Errorf("lookup fallback owner: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("fallback owner %s missing and display name %q is taken", id, FallbackOwnerName)
	}
	return name, nil
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/owners"))
}
