package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/normalize"
	"leadtracker_backend/internal/leads/pricing"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/logger"
	"leadtracker_backend/platform/metrics"
	"leadtracker_backend/platform/phone"

	"github.com/google/uuid"
)

const (
	defaultMaxRows = 5000
	defaultTimeout = time.Minute
	jobName        = "lead_import"
	importedNote   = "批量导入"
)

// Repository is what the importer needs from the lead store.
type Repository interface {
	repository.BatchWriter
	FindDuplicates(ctx context.Context, nameKeys, phoneKeys []string) ([]repository.DuplicateMatch, error)
}

// OwnerResolver maps representative display names to user ids. Names
// that match nobody are absent from the result.
type OwnerResolver interface {
	ResolveByName(ctx context.Context, names []string) (map[string]uuid.UUID, error)
}

// Config bounds and parameterizes an import.
type Config struct {
	MaxRows       int
	Timeout       time.Duration
	FallbackOwner uuid.UUID
	Pricing       pricing.Policy
	PhoneRegion   string
	Clock         domain.Clock
}

// SkippedRow is a data row left out of the batch.
type SkippedRow struct {
	Row          int    `json:"row"`
	CustomerName string `json:"customerName"`
	Reason       string `json:"reason"`
}

// RowWarning is a cell that had to be coerced.
type RowWarning struct {
	Row   int    `json:"row"`
	Field string `json:"field"`
	Input string `json:"input"`
}

// Report describes the outcome of an import. Row numbers are spreadsheet
// line numbers, the header being line 1.
type Report struct {
	Rows           int          `json:"rows"`
	Inserted       int          `json:"inserted"`
	Skipped        []SkippedRow `json:"skipped"`
	Warnings       []RowWarning `json:"warnings"`
	UnknownColumns []string     `json:"unknownColumns,omitempty"`
}

// Importer reconciles a table and inserts it as one batch.
type Importer struct {
	repo    Repository
	owners  OwnerResolver
	bus     events.Bus
	metrics *metrics.LeadMetrics
	log     *logger.Logger
	cfg     Config
}

func NewImporter(repo Repository, owners OwnerResolver, bus events.Bus, m *metrics.LeadMetrics, log *logger.Logger, cfg Config) *Importer {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxRows
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = phone.DefaultRegion
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Importer{repo: repo, owners: owners, bus: bus, metrics: m, log: log, cfg: cfg}
}

// Import inserts every acceptable row of t in one transaction. Rows
// without a customer name and rows duplicating an existing lead or an
// earlier row are skipped and reported. A storage failure inserts
// nothing and is returned as a reconciliation error.
func (im *Importer) Import(ctx context.Context, actor domain.Actor, t Table) (Report, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, im.cfg.Timeout)
	defer cancel()

	batch, report, err := im.Prepare(ctx, actor, t)
	if err == nil && len(batch) > 0 {
		report.Inserted, err = im.repo.InsertBatch(ctx, batch)
		if err != nil {
			err = storageError(err)
		}
	}
	im.metrics.ObserveJob(jobName, time.Since(start), err)
	if err != nil {
		return Report{}, err
	}

	im.metrics.RowsImported(report.Inserted, len(report.Skipped))
	im.log.WithContext(ctx).ImportCompleted(actor.Name, report.Rows, report.Inserted, len(report.Skipped))
	im.bus.Publish(ctx, events.LeadsImported{
		BaseEvent: events.NewBaseEvent(),
		ActorID:   actor.UserID,
		Rows:      report.Rows,
		Inserted:  report.Inserted,
		Skipped:   len(report.Skipped),
	})
	return report, nil
}

// Prepare reconciles and normalizes t without writing anything.
func (im *Importer) Prepare(ctx context.Context, actor domain.Actor, t Table) ([]repository.NewLead, Report, error) {
	if !actor.IsAdmin() {
		return nil, Report{}, apperr.Forbidden("not authorized")
	}
	if len(t.Rows) > im.cfg.MaxRows {
		return nil, Report{}, apperr.Validation(fmt.Sprintf("import is limited to %d rows", im.cfg.MaxRows))
	}

	mapping, err := Reconcile(t.Header)
	if err != nil {
		var recErr *ReconciliationError
		if errors.As(err, &recErr) {
			return nil, Report{}, apperr.Reconciliation(recErr.Error()).WithDetails(map[string]any{"missing": recErr.Missing})
		}
		return nil, Report{}, err
	}

	report := Report{
		Rows:           len(t.Rows),
		Skipped:        make([]SkippedRow, 0),
		Warnings:       make([]RowWarning, 0),
		UnknownColumns: mapping.Unknown,
	}

	owners, err := im.resolveOwners(ctx, mapping, t.Rows)
	if err != nil {
		return nil, Report{}, err
	}

	today := im.cfg.Clock.Today()
	at := im.cfg.Clock.Instant()
	candidates := make([]candidate, 0, len(t.Rows))
	for i, raw := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, Report{}, err
		}
		line := i + 2
		c, warnings := im.normalizeRow(mapping, raw, owners, actor, today, at)
		for _, w := range warnings {
			report.Warnings = append(report.Warnings, RowWarning{Row: line, Field: w.Field, Input: w.Input})
		}
		if c.Lead.CustomerName == "" {
			report.Skipped = append(report.Skipped, SkippedRow{Row: line, Reason: "missing customer name"})
			continue
		}
		c.line = line
		candidates = append(candidates, c)
	}

	batch, skipped, err := im.dedupe(ctx, candidates)
	if err != nil {
		return nil, Report{}, err
	}
	report.Skipped = append(report.Skipped, skipped...)
	return batch, report, nil
}

type candidate struct {
	repository.NewLead
	line int
}

func (im *Importer) normalizeRow(m Mapping, raw []string, owners map[string]uuid.UUID, actor domain.Actor, today, at time.Time) (candidate, normalize.Warnings) {
	var w normalize.Warnings
	value := func(col Column) string { return m.Value(raw, col) }

	phoneDisplay, _ := normalize.Phone(value(ColPhone), im.cfg.PhoneRegion)
	lead := domain.Lead{
		OwnerID:         im.cfg.FallbackOwner,
		CustomerName:    normalize.Text(value(ColCustomerName)),
		Phone:           phoneDisplay,
		Source:          normalize.Text(value(ColSource)),
		ChannelName:     normalize.Text(value(ColChannelName)),
		SiteType:        normalize.Text(value(ColSiteType)),
		IsConstruction:  w.Bool(string(ColIsConstruction), value(ColIsConstruction)),
		UnitPrice:       w.Money(string(ColUnitPrice), value(ColUnitPrice)),
		Area:            w.Money(string(ColArea), value(ColArea)),
		ConstructionFee: w.Money(string(ColConstructionFee), value(ColConstructionFee)),
		MaterialFee:     w.Money(string(ColMaterialFee), value(ColMaterialFee)),
		ShippingFee:     w.Money(string(ColShippingFee), value(ColShippingFee)),
		Stage:           domain.StageFirstContact,
		Intent:          domain.IntentMedium,
		SampleRef:       normalize.Text(value(ColSampleRef)),
		OrderRef:        normalize.Text(value(ColOrderRef)),
		CreatedDate:     *w.Date(string(ColCreatedDate), value(ColCreatedDate), normalize.DateFallbackToday, today),
		LastContactDate: w.Date(string(ColLastContactDate), value(ColLastContactDate), normalize.DateFallbackToday, today),
		NextContactDate: w.Date(string(ColNextContactDate), value(ColNextContactDate), normalize.DateFallbackToday, today),
	}

	if v := value(ColStage); v != "" {
		if s, ok := domain.ParseStage(v); ok && s != domain.StageEscalated {
			lead.Stage = s
		} else {
			w.Add(string(ColStage), v)
		}
	}
	if v := value(ColPurchaseIntent); v != "" {
		if i, ok := domain.ParseIntent(v); ok {
			lead.Intent = i
		} else {
			w.Add(string(ColPurchaseIntent), v)
		}
	}
	if name := normalize.Text(value(ColOwner)); name != "" {
		if id, ok := owners[name]; ok {
			lead.OwnerID = id
		} else {
			w.Add(string(ColOwner), name)
		}
	}

	im.cfg.Pricing.Apply(&lead)

	note := normalize.Text(value(ColNote))
	if note == "" {
		note = importedNote
	}

	return candidate{NewLead: repository.NewLead{
		Lead: lead,
		Keys: repository.Keys{
			NameKey:  normalize.NameKey(lead.CustomerName),
			PhoneKey: phone.Key(lead.Phone, im.cfg.PhoneRegion),
		},
		History: []domain.HistoryEntry{domain.NewEntry(domain.HistoryImported, actor, note, at)},
	}}, w
}

func (im *Importer) resolveOwners(ctx context.Context, m Mapping, rows [][]string) (map[string]uuid.UUID, error) {
	if im.owners == nil || !m.Has(ColOwner) {
		return nil, nil
	}
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, raw := range rows {
		name := normalize.Text(m.Value(raw, ColOwner))
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	owners, err := im.owners.ResolveByName(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve owners: %w", err)
	}
	return owners, nil
}

// dedupe drops candidates that collide with stored leads or with an
// earlier row of the same table.
func (im *Importer) dedupe(ctx context.Context, candidates []candidate) ([]repository.NewLead, []SkippedRow, error) {
	nameKeys := make([]string, 0, len(candidates))
	phoneKeys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		nameKeys = append(nameKeys, c.Keys.NameKey)
		if c.Keys.PhoneKey != "" {
			phoneKeys = append(phoneKeys, c.Keys.PhoneKey)
		}
	}

	existing, err := im.repo.FindDuplicates(ctx, nameKeys, phoneKeys)
	if err != nil {
		return nil, nil, fmt.Errorf("find duplicates: %w", err)
	}
	storedNames := make(map[string]repository.DuplicateMatch, len(existing))
	storedPhones := make(map[string]repository.DuplicateMatch, len(existing))
	for _, m := range existing {
		storedNames[m.NameKey] = m
		if m.PhoneKey != "" {
			storedPhones[m.PhoneKey] = m
		}
	}

	batchNames := make(map[string]int)
	batchPhones := make(map[string]int)
	batch := make([]repository.NewLead, 0, len(candidates))
	skipped := make([]SkippedRow, 0)
	for _, c := range candidates {
		skip := func(reason string) {
			skipped = append(skipped, SkippedRow{Row: c.line, CustomerName: c.Lead.CustomerName, Reason: reason})
		}
		if m, ok := storedNames[c.Keys.NameKey]; ok {
			skip(fmt.Sprintf("customer already exists (lead %d, owner %s)", m.LeadID, ownerLabel(m)))
			continue
		}
		if m, ok := storedPhones[c.Keys.PhoneKey]; ok && c.Keys.PhoneKey != "" {
			skip(fmt.Sprintf("phone already exists (lead %d, owner %s)", m.LeadID, ownerLabel(m)))
			continue
		}
		if line, ok := batchNames[c.Keys.NameKey]; ok {
			skip(fmt.Sprintf("duplicate of row %d", line))
			continue
		}
		if line, ok := batchPhones[c.Keys.PhoneKey]; ok && c.Keys.PhoneKey != "" {
			skip(fmt.Sprintf("duplicate phone of row %d", line))
			continue
		}

		batchNames[c.Keys.NameKey] = c.line
		if c.Keys.PhoneKey != "" {
			batchPhones[c.Keys.PhoneKey] = c.line
		}
		batch = append(batch, c.NewLead)
	}
	return batch, skipped, nil
}

func ownerLabel(m repository.DuplicateMatch) string {
	if strings.TrimSpace(m.OwnerName) != "" {
		return m.OwnerName
	}
	return m.OwnerID.String()
}

func storageError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Reconciliation("import timed out; nothing was inserted").WithDetails(map[string]any{"error": err.Error()})
	}
	return apperr.Reconciliation("import failed; nothing was inserted").WithDetails(map[string]any{"error": err.Error()})
}

