package handler

import (
	"net/http"

	"leadtracker_backend/internal/leads/ingest"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 10 << 20

// ImportHandler accepts spreadsheet uploads. It is mounted on the admin
// group.
type ImportHandler struct {
	importer *ingest.Importer
}

func NewImportHandler(importer *ingest.Importer) *ImportHandler {
	return &ImportHandler{importer: importer}
}

func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Import)
}

// Import reads the multipart field "file" as CSV or XLSX.
func (h *ImportHandler) Import(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer func() { _ = f.Close() }()

	table, err := ingest.Read(f)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindReconciliation, "file could not be read as csv or xlsx", err))
		return
	}

	report, err := h.importer.Import(c.Request.Context(), actor, table)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, report)
}
