package handler

import (
	"context"

	"leadtracker_backend/internal/owners/repository"
	"leadtracker_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Lister is the read side of the owner directory.
type Lister interface {
	List(ctx context.Context) ([]repository.Owner, error)
}

type OwnerResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
}

type Handler struct {
	owners Lister
}

func New(owners Lister) *Handler {
	return &Handler{owners: owners}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
}

func (h *Handler) List(c *gin.Context) {
	owners, err := h.owners.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]OwnerResponse, 0, len(owners))
	for _, o := range owners {
		items = append(items, OwnerResponse{ID: o.ID, DisplayName: o.DisplayName, Role: o.Role, Active: o.Active})
	}
	httpkit.OK(c, gin.H{"items": items})
}
