package exports

import (
	"context"
	"fmt"
	"io"
	"time"

	"leadtracker_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SheetBuilder renders the lead table.
type SheetBuilder interface {
	Build(ctx context.Context) (Sheet, error)
}

// Handler serves lead exports.
type Handler struct {
	svc SheetBuilder
	now func() time.Time
}

func NewHandler(svc SheetBuilder) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads.csv", h.ExportCSV)
	rg.GET("/leads.xlsx", h.ExportXLSX)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	h.export(c, "csv", contentTypeCSV, WriteCSV)
}

func (h *Handler) ExportXLSX(c *gin.Context) {
	h.export(c, "xlsx", contentTypeXLSX, WriteXLSX)
}

// export builds the sheet before writing any header so a failed load
// still gets a JSON error.
func (h *Handler) export(c *gin.Context, ext, contentType string, write func(io.Writer, Sheet) error) {
	sheet, err := h.svc.Build(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	filename := fmt.Sprintf("leads-%s.%s", h.now().Format("20060102"), ext)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := write(c.Writer, sheet); err != nil {
		_ = c.Error(err)
	}
}
