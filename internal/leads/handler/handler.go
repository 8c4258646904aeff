package handler

import (
	"net/http"
	"strconv"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/followup"
	"leadtracker_backend/internal/leads/management"
	"leadtracker_backend/internal/leads/staleness"
	"leadtracker_backend/internal/leads/transport"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/httpkit"
	"leadtracker_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"

	sweepTriggerHTTP = "http"
)

type Handler struct {
	mgmt    *management.Service
	ledger  *followup.Ledger
	sweeper *staleness.Sweeper
	val     *validator.Validator
}

func New(mgmt *management.Service, ledger *followup.Ledger, sweeper *staleness.Sweeper, val *validator.Validator) *Handler {
	return &Handler{mgmt: mgmt, ledger: ledger, sweeper: sweeper, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/check-duplicate", h.CheckDuplicate)
	rg.POST("/sweep", h.Sweep)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/follow-ups", h.AppendFollowUp)
	rg.GET("/:id/history", h.History)
	rg.PUT("/:id/owner", h.AssignOwner)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.ListLeadsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transport.CreateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Create(c.Request.Context(), actor, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) CheckDuplicate(c *gin.Context) {
	var req transport.DuplicateCheckRequest
	if !h.bindQuery(c, &req) {
		return
	}

	result, err := h.mgmt.CheckDuplicate(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Edit(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.mgmt.Delete(c.Request.Context(), actor, id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AppendFollowUp(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.FollowUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.ledger.Append(c.Request.Context(), actor, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) History(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}

	entries, err := h.mgmt.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": entries})
}

func (h *Handler) AssignOwner(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := leadID(c)
	if !ok {
		return
	}
	var req transport.AssignOwnerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.mgmt.Reassign(c.Request.Context(), actor, id, req.OwnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// Sweep runs a staleness pass on demand. Clients call it when a session
// starts, so any authenticated user may trigger it.
func (h *Handler) Sweep(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}

	result, err := h.sweeper.Run(c.Request.Context(), sweepTriggerHTTP)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SweepResponse{
		Reassigned: result.Reassigned,
		Candidates: result.Candidates,
		Skipped:    result.Skipped,
	})
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func leadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidLeadID))
		return 0, false
	}
	return id, true
}

// actorFrom builds the caller from the token. It aborts with 401 and
// returns false when the request is unauthenticated.
func actorFrom(c *gin.Context) (domain.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.Actor{}, false
	}
	return domain.ActorFromRoles(id.UserID(), id.DisplayName(), id.Roles()), true
}
