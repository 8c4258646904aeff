// Package leads provides the lead tracking bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"leadtracker_backend/internal/events"
	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/followup"
	"leadtracker_backend/internal/leads/handler"
	"leadtracker_backend/internal/leads/ingest"
	"leadtracker_backend/internal/leads/management"
	"leadtracker_backend/internal/leads/pricing"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/staleness"
	"leadtracker_backend/internal/leads/transport"
	"leadtracker_backend/platform/config"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/metrics"
	"leadtracker_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Owners is what the leads module needs from the owner directory.
type Owners interface {
	Lookup(ctx context.Context, id uuid.UUID) (string, bool, error)
	ResolveByName(ctx context.Context, names []string) (map[string]uuid.UUID, error)
}

// Config is the slice of application configuration the module reads.
type Config interface {
	config.LeadPolicyConfig
	config.ImportConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo          *repository.Repository
	handler       *handler.Handler
	importHandler *handler.ImportHandler
	management    *management.Service
	sweeper       *staleness.Sweeper
	importer      *ingest.Importer
}

// NewModule wires the leads services. rdb may be nil, in which case sweep
// passes are not serialized across processes. fallbackName labels the
// fallback owner in sweep history entries.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg Config, owners Owners, rdb redis.Cmdable, m *metrics.LeadMetrics, fallbackName string, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidators(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	clock := domain.Clock{Location: cfg.GetBusinessLocation()}
	policy := pricing.Policy{ShippingInTotal: cfg.GetShippingInTotal()}

	mgmtSvc := management.New(repo, owners, eventBus, management.Config{
		Pricing:     policy,
		Clock:       clock,
		PhoneRegion: cfg.GetPhoneDefaultRegion(),
	})
	ledger := followup.New(repo, eventBus, clock)

	sweepOpts := []staleness.Option{staleness.WithMetrics(m)}
	if rdb != nil {
		sweepOpts = append(sweepOpts, staleness.WithLocker(staleness.NewRedisLocker(rdb, "", 0)))
	}
	sweeper := staleness.NewSweeper(repo, eventBus, log, staleness.Config{
		ThresholdDays: cfg.GetStaleThresholdDays(),
		FallbackOwner: cfg.GetFallbackOwnerID(),
		FallbackName:  fallbackName,
		Clock:         clock,
	}, sweepOpts...)

	importer := ingest.NewImporter(repo, owners, eventBus, m, log, ingest.Config{
		MaxRows:       cfg.GetImportMaxRows(),
		Timeout:       cfg.GetImportTimeout(),
		FallbackOwner: cfg.GetFallbackOwnerID(),
		Pricing:       policy,
		PhoneRegion:   cfg.GetPhoneDefaultRegion(),
		Clock:         clock,
	})

	return &Module{
		repo:          repo,
		handler:       handler.New(mgmtSvc, ledger, sweeper, val),
		importHandler: handler.NewImportHandler(importer),
		management:    mgmtSvc,
		sweeper:       sweeper,
		importer:      importer,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository returns the lead store for read-only consumers such as exports.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Sweeper returns the staleness sweeper for the scheduler worker.
func (m *Module) Sweeper() *staleness.Sweeper {
	return m.sweeper
}

// Importer returns the bulk importer for the import CLI.
func (m *Module) Importer() *ingest.Importer {
	return m.importer
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	admin := ctx.Admin.Group("/leads")
	if ctx.StrictRateLimiter != nil {
		admin.Use(ctx.StrictRateLimiter.RateLimit())
	}
	m.importHandler.RegisterRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
