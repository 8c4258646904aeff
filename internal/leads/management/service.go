// Package management handles lead CRUD operations.
// This is a vertically sliced feature package containing service logic
// for creating, reading, updating, reassigning and deleting leads.
package management

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/normalize"
	"leadtracker_backend/internal/leads/pricing"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/transport"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/phone"
	"leadtracker_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	msgNotAuthorized = "not authorized"
	msgLeadNotFound  = "lead not found"
	defaultPageSize  = 50
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.DuplicateFinder
	repository.HistoryStore
}

// OwnerNames resolves an owner id to its display name.
type OwnerNames interface {
	Lookup(ctx context.Context, id uuid.UUID) (name string, found bool, err error)
}

// Config carries the business rules the service applies on every write.
type Config struct {
	Pricing     pricing.Policy
	Clock       domain.Clock
	PhoneRegion string
}

// Service handles lead management operations.
type Service struct {
	repo   Repository
	owners OwnerNames
	bus    events.Bus
	cfg    Config
}

// New creates a new lead management service.
func New(repo Repository, owners OwnerNames, bus events.Bus, cfg Config) *Service {
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = phone.DefaultRegion
	}
	return &Service{repo: repo, owners: owners, bus: bus, cfg: cfg}
}

// Create normalizes the request, rejects duplicates and stores the lead
// owned by the actor (or, for admins, by an explicit owner).
func (s *Service) Create(ctx context.Context, actor domain.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	today := s.cfg.Clock.Today()
	var warnings normalize.Warnings

	name := normalize.Text(req.CustomerName)
	if name == "" {
		return transport.LeadResponse{}, apperr.Validation("customer name is required")
	}
	phoneDisplay, _ := normalize.Phone(req.Phone, s.cfg.PhoneRegion)

	lead := domain.Lead{
		OwnerID:         actor.UserID,
		CustomerName:    name,
		Phone:           phoneDisplay,
		Source:          normalize.Text(req.Source),
		ChannelName:     normalize.Text(req.ChannelName),
		SiteType:        normalize.Text(req.SiteType),
		IsConstruction:  warnings.Bool("isConstruction", req.IsConstruction.Value),
		UnitPrice:       warnings.Money("unitPrice", req.UnitPrice.Value),
		Area:            warnings.Money("area", req.Area.Value),
		ConstructionFee: warnings.Money("constructionFee", req.ConstructionFee.Value),
		MaterialFee:     warnings.Money("materialFee", req.MaterialFee.Value),
		ShippingFee:     warnings.Money("shippingFee", req.ShippingFee.Value),
		Stage:           domain.StageFirstContact,
		Intent:          domain.IntentMedium,
		SampleRef:       normalize.Text(req.SampleRef),
		OrderRef:        normalize.Text(req.OrderRef),
		CreatedDate:     *warnings.Date("createdDate", req.CreatedDate.Value, normalize.DateFallbackToday, today),
		LastContactDate: warnings.Date("lastContactDate", req.LastContactDate.Value, normalize.DateFallbackNone, today),
		NextContactDate: warnings.Date("nextContactDate", req.NextContactDate.Value, normalize.DateFallbackNone, today),
	}
	if stage, ok := parseManualStage(req.Stage); ok {
		lead.Stage = stage
	} else if req.Stage != "" {
		warnings.Add("stage", req.Stage)
	}
	if intent, ok := domain.ParseIntent(req.PurchaseIntent); ok {
		lead.Intent = intent
	} else if req.PurchaseIntent != "" {
		warnings.Add("purchaseIntent", req.PurchaseIntent)
	}

	if req.OwnerID.Set && req.OwnerID.Value != nil && *req.OwnerID.Value != actor.UserID {
		if !actor.IsAdmin() {
			return transport.LeadResponse{}, apperr.Forbidden(msgNotAuthorized)
		}
		lead.OwnerID = *req.OwnerID.Value
	}

	s.cfg.Pricing.Apply(&lead)
	keys := s.keysFor(lead.CustomerName, lead.Phone)

	match, err := s.repo.FindDuplicate(ctx, keys.NameKey, keys.PhoneKey)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if match != nil {
		return transport.LeadResponse{}, duplicateError(*match)
	}

	in := repository.NewLead{Lead: lead, Keys: keys}
	if note := sanitize.Text(req.Note); note != "" {
		in.History = append(in.History, domain.NewEntry(domain.HistoryCreated, actor, note, s.cfg.Clock.Instant()))
	}

	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return transport.LeadResponse{}, s.translateWriteError(ctx, err, &keys, 0)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       created.ID,
		OwnerID:      created.OwnerID,
		ActorID:      actor.UserID,
		CustomerName: created.CustomerName,
		ChannelName:  created.ChannelName,
		Coerced:      warnings.Fields(),
	})

	resp := ToLeadResponse(created, today)
	resp.Warnings = warnings
	return resp, nil
}

// Get returns a lead with its full history.
func (s *Service) Get(ctx context.Context, id int64) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}
	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	resp := ToLeadResponse(lead, s.cfg.Clock.Today())
	resp.FollowUpHistory = ToHistoryResponses(history, s.cfg.Clock.Location)
	return resp, nil
}

// List returns a filtered page of leads.
func (s *Service) List(ctx context.Context, actor domain.Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	today := s.cfg.Clock.Today()

	page := max(req.Page, 1)
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	params := repository.ListParams{
		Channel:   req.Channel,
		Search:    req.Search,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	if req.Mine {
		owner := actor.UserID
		params.OwnerID = &owner
	} else if req.OwnerID != "" {
		owner, err := uuid.Parse(req.OwnerID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid owner id")
		}
		params.OwnerID = &owner
	}
	if stage, ok := domain.ParseStage(req.Stage); ok {
		params.Stage = &stage
	}
	if intent, ok := domain.ParseIntent(req.Intent); ok {
		params.Intent = &intent
	}
	if req.Overdue {
		params.OverdueBefore = &today
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, ToLeadResponse(lead, today))
	}

	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Edit applies a partial update. Representatives may edit only their own
// leads, may not change the owner and may not move the last contact date
// backwards. The total is recomputed on every edit.
func (s *Service) Edit(ctx context.Context, actor domain.Actor, id int64, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	today := s.cfg.Clock.Today()
	var warnings normalize.Warnings

	var newOwner *uuid.UUID
	var newOwnerName string
	if req.OwnerID.Set {
		if !actor.IsAdmin() {
			return transport.LeadResponse{}, apperr.Forbidden(msgNotAuthorized)
		}
		if req.OwnerID.Value == nil {
			return transport.LeadResponse{}, apperr.Validation("owner is required")
		}
		name, err := s.resolveOwner(ctx, *req.OwnerID.Value)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		newOwner, newOwnerName = req.OwnerID.Value, name
	}

	var keys *repository.Keys
	var reassigned *events.LeadReassigned

	updated, err := s.repo.Mutate(ctx, id, func(lead *domain.Lead) (repository.Change, error) {
		var change repository.Change
		if !actor.CanModify(*lead) {
			return change, apperr.Forbidden(msgNotAuthorized)
		}
		if err := s.applyPatch(lead, actor, req, today, &warnings); err != nil {
			return change, err
		}
		if req.CustomerName != nil || req.Phone != nil {
			k := s.keysFor(lead.CustomerName, lead.Phone)
			keys = &k
			change.Keys = keys
		}
		if newOwner != nil && *newOwner != lead.OwnerID {
			change.History = append(change.History, s.reassignmentEntry(actor, lead.OwnerName, newOwnerName))
			reassigned = &events.LeadReassigned{
				BaseEvent:     events.NewBaseEvent(),
				LeadID:        lead.ID,
				PreviousOwner: lead.OwnerID,
				NewOwner:      *newOwner,
				Trigger:       events.TriggerManual,
			}
			lead.OwnerID = *newOwner
		}
		s.cfg.Pricing.Apply(lead)
		return change, nil
	})
	if err != nil {
		return transport.LeadResponse{}, s.translateWriteError(ctx, err, keys, id)
	}

	if reassigned != nil {
		s.bus.Publish(ctx, *reassigned)
	}

	resp := ToLeadResponse(updated, today)
	resp.Warnings = warnings
	return resp, nil
}

func (s *Service) applyPatch(lead *domain.Lead, actor domain.Actor, req transport.UpdateLeadRequest, today time.Time, w *normalize.Warnings) error {
	if req.CustomerName != nil {
		name := normalize.Text(*req.CustomerName)
		if name == "" {
			return apperr.Validation("customer name is required")
		}
		lead.CustomerName = name
	}
	if req.Phone != nil {
		lead.Phone, _ = normalize.Phone(*req.Phone, s.cfg.PhoneRegion)
	}
	if req.Source != nil {
		lead.Source = normalize.Text(*req.Source)
	}
	if req.ChannelName != nil {
		lead.ChannelName = normalize.Text(*req.ChannelName)
	}
	if req.SiteType != nil {
		lead.SiteType = normalize.Text(*req.SiteType)
	}
	if req.SampleRef != nil {
		lead.SampleRef = normalize.Text(*req.SampleRef)
	}
	if req.OrderRef != nil {
		lead.OrderRef = normalize.Text(*req.OrderRef)
	}
	if req.IsConstruction.Set {
		lead.IsConstruction = w.Bool("isConstruction", req.IsConstruction.Value)
	}

	priced := []struct {
		field  string
		input  transport.Flex
		target *float64
	}{
		{"unitPrice", req.UnitPrice, &lead.UnitPrice},
		{"area", req.Area, &lead.Area},
		{"constructionFee", req.ConstructionFee, &lead.ConstructionFee},
		{"materialFee", req.MaterialFee, &lead.MaterialFee},
		{"shippingFee", req.ShippingFee, &lead.ShippingFee},
	}
	for _, p := range priced {
		if p.input.Set {
			*p.target = w.Money(p.field, p.input.Value)
		}
	}

	if req.Stage != nil {
		stage, ok := parseManualStage(*req.Stage)
		if !ok {
			return apperr.Validation("invalid stage")
		}
		lead.Stage = stage
	}
	if req.PurchaseIntent != nil {
		intent, ok := domain.ParseIntent(*req.PurchaseIntent)
		if !ok {
			return apperr.Validation("invalid purchase intent")
		}
		lead.Intent = intent
	}

	if req.LastContactDate.Set {
		if err := applyLastContact(lead, actor, req.LastContactDate, today, w); err != nil {
			return err
		}
	}
	if req.NextContactDate.Set {
		if req.NextContactDate.IsNull() {
			lead.NextContactDate = nil
		} else if d := w.Date("nextContactDate", req.NextContactDate.Value, normalize.DateFallbackNone, today); d != nil {
			lead.NextContactDate = d
		}
	}
	return nil
}

// applyLastContact keeps the last contact date monotonic for
// representatives. Unparseable input leaves the date unchanged.
func applyLastContact(lead *domain.Lead, actor domain.Actor, input transport.Flex, today time.Time, w *normalize.Warnings) error {
	if input.IsNull() {
		if lead.LastContactDate != nil && !actor.IsAdmin() {
			return apperr.Forbidden("only administrators can clear the last contact date")
		}
		lead.LastContactDate = nil
		return nil
	}

	d := w.Date("lastContactDate", input.Value, normalize.DateFallbackNone, today)
	if d == nil {
		return nil
	}
	if lead.LastContactDate != nil && d.Before(*lead.LastContactDate) && !actor.IsAdmin() {
		return apperr.Forbidden("only administrators can move the last contact date backwards")
	}
	lead.LastContactDate = d
	return nil
}

// Delete removes a lead and its history. Admin only.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsAdmin() {
		return apperr.Forbidden(msgNotAuthorized)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.bus.Publish(ctx, events.LeadDeleted{BaseEvent: events.NewBaseEvent(), LeadID: id, ActorID: actor.UserID})
	return nil
}

// CheckDuplicate reports whether a lead with this name or phone exists.
func (s *Service) CheckDuplicate(ctx context.Context, req transport.DuplicateCheckRequest) (transport.DuplicateCheckResponse, error) {
	name := normalize.Text(req.CustomerName)
	phoneDisplay, _ := normalize.Phone(req.Phone, s.cfg.PhoneRegion)
	if name == "" && phoneDisplay == "" {
		return transport.DuplicateCheckResponse{}, apperr.Validation("name or phone is required")
	}

	keys := s.keysFor(name, phoneDisplay)
	match, err := s.repo.FindDuplicate(ctx, keys.NameKey, keys.PhoneKey)
	if err != nil {
		return transport.DuplicateCheckResponse{}, err
	}
	if match == nil {
		return transport.DuplicateCheckResponse{IsDuplicate: false}, nil
	}
	return transport.DuplicateCheckResponse{IsDuplicate: true, Existing: toDuplicateDetails(*match)}, nil
}

// Reassign moves a lead to another owner and records it. Admin only.
func (s *Service) Reassign(ctx context.Context, actor domain.Actor, id int64, ownerID uuid.UUID) (transport.LeadResponse, error) {
	if !actor.IsAdmin() {
		return transport.LeadResponse{}, apperr.Forbidden(msgNotAuthorized)
	}
	return s.Edit(ctx, actor, id, transport.UpdateLeadRequest{
		OwnerID: transport.OptionalUUID{Value: &ownerID, Set: true},
	})
}

// History returns a lead's entries oldest first.
func (s *Service) History(ctx context.Context, id int64) ([]transport.HistoryEntryResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, mapNotFound(err)
	}
	entries, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToHistoryResponses(entries, s.cfg.Clock.Location), nil
}

func (s *Service) keysFor(name, phoneDisplay string) repository.Keys {
	return repository.Keys{
		NameKey:  normalize.NameKey(name),
		PhoneKey: phone.Key(phoneDisplay, s.cfg.PhoneRegion),
	}
}

func (s *Service) resolveOwner(ctx context.Context, id uuid.UUID) (string, error) {
	if s.owners == nil {
		return "", nil
	}
	name, found, err := s.owners.Lookup(ctx, id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperr.Validation("owner does not exist")
	}
	return name, nil
}

func (s *Service) reassignmentEntry(actor domain.Actor, from, to string) domain.HistoryEntry {
	body := fmt.Sprintf("负责人由 %s 变更为 %s", from, to)
	return domain.NewEntry(domain.HistoryReassignment, actor, body, s.cfg.Clock.Instant())
}

// translateWriteError maps repository sentinels onto apperr kinds. keys,
// when known, are used to tell the caller who already holds the key that
// collided; self is the lead being written and is never reported.
func (s *Service) translateWriteError(ctx context.Context, err error, keys *repository.Keys, self int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrUnknownOwner):
		return apperr.Validation("owner does not exist")
	case errors.Is(err, repository.ErrDuplicate):
		if keys != nil {
			if match := s.holderOf(ctx, err, *keys, self); match != nil {
				return duplicateError(*match)
			}
		}
		return apperr.Conflict("lead already exists")
	}
	return err
}

// holderOf finds the other lead holding the key named by a duplicate error.
func (s *Service) holderOf(ctx context.Context, err error, keys repository.Keys, self int64) *repository.DuplicateMatch {
	field := "name"
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		field = dup.Field
	}

	nameKeys, phoneKeys := []string{}, []string{}
	if field == "phone" {
		if keys.PhoneKey == "" {
			return nil
		}
		phoneKeys = append(phoneKeys, keys.PhoneKey)
	} else {
		nameKeys = append(nameKeys, keys.NameKey)
	}

	matches, lookupErr := s.repo.FindDuplicates(ctx, nameKeys, phoneKeys)
	if lookupErr != nil {
		return nil
	}
	for i := range matches {
		if matches[i].LeadID != self {
			return &matches[i]
		}
	}
	return nil
}

func duplicateError(m repository.DuplicateMatch) error {
	return apperr.Conflict(fmt.Sprintf("lead already exists and is owned by %s", m.OwnerName)).
		WithDetails(toDuplicateDetails(m))
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgLeadNotFound)
	}
	return err
}

// parseManualStage accepts any stage except the sweep-only escalated one.
func parseManualStage(raw string) (domain.Stage, bool) {
	stage, ok := domain.ParseStage(raw)
	if !ok || stage == domain.StageEscalated {
		return "", false
	}
	return stage, true
}
