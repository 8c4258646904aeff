package management

import (
	"time"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/transport"
)

// ToLeadResponse maps a lead for the API. today drives the overdue flag.
func ToLeadResponse(lead domain.Lead, today time.Time) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		OwnerID:         lead.OwnerID,
		OwnerName:       lead.OwnerName,
		CustomerName:    lead.CustomerName,
		Phone:           lead.Phone,
		Source:          lead.Source,
		ChannelName:     lead.ChannelName,
		SiteType:        lead.SiteType,
		IsConstruction:  lead.IsConstruction,
		UnitPrice:       lead.UnitPrice,
		Area:            lead.Area,
		ConstructionFee: lead.ConstructionFee,
		MaterialFee:     lead.MaterialFee,
		ShippingFee:     lead.ShippingFee,
		TotalAmount:     lead.TotalAmount,
		Stage:           string(lead.Stage),
		StageLabel:      lead.Stage.Label(),
		PurchaseIntent:  string(lead.Intent),
		IntentLabel:     lead.Intent.Label(),
		SampleRef:       lead.SampleRef,
		OrderRef:        lead.OrderRef,
		CreatedDate:     *transport.FormatDate(&lead.CreatedDate),
		LastContactDate: transport.FormatDate(lead.LastContactDate),
		NextContactDate: transport.FormatDate(lead.NextContactDate),
		IsOverdue:       lead.IsOverdue(today),
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

// ToHistoryResponses maps history entries, rendering lines in loc.
func ToHistoryResponses(entries []domain.HistoryEntry, loc *time.Location) []transport.HistoryEntryResponse {
	out := make([]transport.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transport.HistoryEntryResponse{
			ID:         e.ID,
			Kind:       string(e.Kind),
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			Body:       e.Body,
			Line:       e.Line(loc),
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}

func toDuplicateDetails(m repository.DuplicateMatch) *transport.DuplicateDetails {
	return &transport.DuplicateDetails{
		ExistingLeadID: m.LeadID,
		OwnerID:        m.OwnerID,
		OwnerName:      m.OwnerName,
		MatchedField:   m.Field,
	}
}
