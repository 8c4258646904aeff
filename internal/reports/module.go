package reports

import (
	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reports module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, clock domain.Clock) *Module {
	return &Module{handler: NewHandler(NewService(NewRepository(pool), clock))}
}

func (m *Module) Name() string {
	return "reports"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/reports"))
}

var _ apphttp.Module = (*Module)(nil)
