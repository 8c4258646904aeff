package transport

import (
	"time"

	"leadtracker_backend/internal/leads/normalize"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// Request DTOs

// CreateLeadRequest accepts loosely typed priced and date fields; they
// are coerced, never rejected.
type CreateLeadRequest struct {
	CustomerName    string       `json:"customerName" validate:"required,max=200"`
	Phone           string       `json:"phone" validate:"max=40"`
	Source          string       `json:"source" validate:"max=100"`
	ChannelName     string       `json:"channelName" validate:"max=100"`
	SiteType        string       `json:"siteType" validate:"max=100"`
	IsConstruction  Flex         `json:"isConstruction" validate:"-"`
	UnitPrice       Flex         `json:"unitPrice" validate:"-"`
	Area            Flex         `json:"area" validate:"-"`
	ConstructionFee Flex         `json:"constructionFee" validate:"-"`
	MaterialFee     Flex         `json:"materialFee" validate:"-"`
	ShippingFee     Flex         `json:"shippingFee" validate:"-"`
	Stage           string       `json:"stage" validate:"omitempty,lead_stage"`
	PurchaseIntent  string       `json:"purchaseIntent" validate:"omitempty,lead_intent"`
	SampleRef       string       `json:"sampleRef" validate:"max=100"`
	OrderRef        string       `json:"orderRef" validate:"max=100"`
	CreatedDate     Flex         `json:"createdDate" validate:"-"`
	LastContactDate Flex         `json:"lastContactDate" validate:"-"`
	NextContactDate Flex         `json:"nextContactDate" validate:"-"`
	Note            string       `json:"note" validate:"max=4000"`
	OwnerID         OptionalUUID `json:"ownerId,omitempty" validate:"-"`
}

// UpdateLeadRequest is a partial edit; absent fields are left unchanged.
type UpdateLeadRequest struct {
	CustomerName    *string      `json:"customerName,omitempty" validate:"omitempty,max=200"`
	Phone           *string      `json:"phone,omitempty" validate:"omitempty,max=40"`
	Source          *string      `json:"source,omitempty" validate:"omitempty,max=100"`
	ChannelName     *string      `json:"channelName,omitempty" validate:"omitempty,max=100"`
	SiteType        *string      `json:"siteType,omitempty" validate:"omitempty,max=100"`
	IsConstruction  Flex         `json:"isConstruction" validate:"-"`
	UnitPrice       Flex         `json:"unitPrice" validate:"-"`
	Area            Flex         `json:"area" validate:"-"`
	ConstructionFee Flex         `json:"constructionFee" validate:"-"`
	MaterialFee     Flex         `json:"materialFee" validate:"-"`
	ShippingFee     Flex         `json:"shippingFee" validate:"-"`
	Stage           *string      `json:"stage,omitempty" validate:"omitempty,lead_stage"`
	PurchaseIntent  *string      `json:"purchaseIntent,omitempty" validate:"omitempty,lead_intent"`
	SampleRef       *string      `json:"sampleRef,omitempty" validate:"omitempty,max=100"`
	OrderRef        *string      `json:"orderRef,omitempty" validate:"omitempty,max=100"`
	LastContactDate Flex         `json:"lastContactDate" validate:"-"`
	NextContactDate Flex         `json:"nextContactDate" validate:"-"`
	OwnerID         OptionalUUID `json:"ownerId,omitempty" validate:"-"`
}

// FollowUpRequest logs one contact. Stage and intent keep their current
// values when omitted.
type FollowUpRequest struct {
	Note            string `json:"note" validate:"required,max=4000"`
	NextContactDate Flex   `json:"nextContactDate" validate:"-"`
	Stage           string `json:"stage" validate:"omitempty,lead_stage"`
	PurchaseIntent  string `json:"purchaseIntent" validate:"omitempty,lead_intent"`
}

type AssignOwnerRequest struct {
	OwnerID uuid.UUID `json:"ownerId" validate:"required"`
}

type ListLeadsRequest struct {
	OwnerID   string `form:"ownerId" validate:"omitempty,uuid"`
	Mine      bool   `form:"mine"`
	Stage     string `form:"stage" validate:"omitempty,lead_stage"`
	Intent    string `form:"intent" validate:"omitempty,lead_intent"`
	Channel   string `form:"channel" validate:"max=100"`
	Search    string `form:"search" validate:"max=100"`
	Overdue   bool   `form:"overdue"`
	SortBy    string `form:"sortBy" validate:"omitempty,oneof=customerName totalAmount lastContactDate nextContactDate createdDate createdAt"`
	SortOrder string `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

type DuplicateCheckRequest struct {
	CustomerName string `form:"name" validate:"max=200"`
	Phone        string `form:"phone" validate:"max=40"`
}

// Response DTOs

type LeadResponse struct {
	ID              int64                  `json:"id"`
	OwnerID         uuid.UUID              `json:"ownerId"`
	OwnerName       string                 `json:"ownerName"`
	CustomerName    string                 `json:"customerName"`
	Phone           string                 `json:"phone"`
	Source          string                 `json:"source"`
	ChannelName     string                 `json:"channelName"`
	SiteType        string                 `json:"siteType"`
	IsConstruction  bool                   `json:"isConstruction"`
	UnitPrice       float64                `json:"unitPrice"`
	Area            float64                `json:"area"`
	ConstructionFee float64                `json:"constructionFee"`
	MaterialFee     float64                `json:"materialFee"`
	ShippingFee     float64                `json:"shippingFee"`
	TotalAmount     float64                `json:"totalAmount"`
	Stage           string                 `json:"stage"`
	StageLabel      string                 `json:"stageLabel"`
	PurchaseIntent  string                 `json:"purchaseIntent"`
	IntentLabel     string                 `json:"purchaseIntentLabel"`
	SampleRef       string                 `json:"sampleRef"`
	OrderRef        string                 `json:"orderRef"`
	CreatedDate     string                 `json:"createdDate"`
	LastContactDate *string                `json:"lastContactDate"`
	NextContactDate *string                `json:"nextContactDate"`
	IsOverdue       bool                   `json:"isOverdue"`
	FollowUpHistory []HistoryEntryResponse `json:"followUpHistory,omitempty"`
	Warnings        normalize.Warnings     `json:"warnings,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type HistoryEntryResponse struct {
	ID         int64      `json:"id"`
	Kind       string     `json:"kind"`
	ActorID    *uuid.UUID `json:"actorId,omitempty"`
	ActorName  string     `json:"actorName"`
	Body       string     `json:"body"`
	Line       string     `json:"line"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// DuplicateDetails accompanies a 409 so the operator sees who already
// holds the lead.
type DuplicateDetails struct {
	ExistingLeadID int64     `json:"existingLeadId"`
	OwnerID        uuid.UUID `json:"ownerId"`
	OwnerName      string    `json:"ownerName"`
	MatchedField   string    `json:"matchedField"`
}

type DuplicateCheckResponse struct {
	IsDuplicate bool              `json:"isDuplicate"`
	Existing    *DuplicateDetails `json:"existing,omitempty"`
}

type SweepResponse struct {
	Reassigned int  `json:"reassigned"`
	Candidates int  `json:"candidates"`
	Skipped    bool `json:"skipped"`
}

// FormatDate renders a calendar date, nil stays nil.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
