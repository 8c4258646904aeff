package exports

import (
	"time"

	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/leads"
)

// Module is the exports bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates and initializes the exports module.
func NewModule(reader leads.Reader, loc *time.Location) *Module {
	return &Module{handler: NewHandler(NewService(reader, loc))}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "exports"
}

// RegisterRoutes mounts export routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/exports"))
}

var _ apphttp.Module = (*Module)(nil)
