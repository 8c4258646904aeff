package exports

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/ingest"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/repository/memstore"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ownerID = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")

func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	store.AddOwner(ownerID, "范秋菊")

	last := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	lead := store.Seed(domain.Lead{
		OwnerID:         ownerID,
		CustomerName:    "星河装饰",
		Phone:           "+8613800138000",
		IsConstruction:  true,
		UnitPrice:       85,
		Area:            100,
		TotalAmount:     8500,
		Stage:           domain.StageQuoted,
		Intent:          domain.IntentHigh,
		CreatedDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		LastContactDate: &last,
	}, repository.Keys{NameKey: "星河装饰"})

	actor := domain.Actor{UserID: ownerID, Name: "范秋菊", Role: domain.RoleRepresentative}
	require.NoError(t, store.AppendHistory(context.Background(), withLead(domain.NewEntry(domain.HistoryFollowUp, actor, "电话沟通", time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)), lead.ID)))
	require.NoError(t, store.AppendHistory(context.Background(), withLead(domain.NewEntry(domain.HistoryFollowUp, actor, "寄送样品", time.Date(2026, 5, 3, 14, 0, 0, 0, time.UTC)), lead.ID)))
	return store
}

func withLead(e domain.HistoryEntry, id int64) domain.HistoryEntry {
	e.LeadID = id
	return e
}

func TestBuildRendersLeadsWithHistory(t *testing.T) {
	sheet, err := NewService(seededStore(t), time.UTC).Build(context.Background())
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 1)
	row := sheet.Rows[0]
	require.Len(t, row, len(header))
	assert.Equal(t, "星河装饰", row[0])
	assert.Equal(t, "是", row[5])
	assert.Equal(t, "8500", row[11])
	assert.Equal(t, "范秋菊", row[12])
	assert.Equal(t, domain.StageQuoted.Label(), row[13])
	assert.Equal(t, "2026-05-02", row[18])
	assert.Equal(t, "", row[19])
	assert.Equal(t, "[2026-05-02 09:30] 范秋菊: 电话沟通\n[2026-05-03 14:00] 范秋菊: 寄送样品", row[20])
	assert.Equal(t, "1", row[21])
	assert.Equal(t, ownerID.String(), row[22])
}

func TestExportHeaderIsImportable(t *testing.T) {
	mapping, err := ingest.Reconcile(header)
	require.NoError(t, err)
	assert.Equal(t, []string{"线索编号", "对接人编号"}, mapping.Unknown)
}

func TestWritersRoundTripThroughImportReader(t *testing.T) {
	sheet, err := NewService(seededStore(t), time.UTC).Build(context.Background())
	require.NoError(t, err)

	for name, write := range map[string]func(*bytes.Buffer, Sheet) error{
		"csv":  func(b *bytes.Buffer, s Sheet) error { return WriteCSV(b, s) },
		"xlsx": func(b *bytes.Buffer, s Sheet) error { return WriteXLSX(b, s) },
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, write(&buf, sheet))

			table, err := ingest.Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, header, table.Header)
			require.Len(t, table.Rows, 1)
			assert.Equal(t, "星河装饰", table.Rows[0][0])
			assert.Equal(t, "范秋菊", table.Rows[0][12])
		})
	}
}

type failingReader struct{}

func (failingReader) ListAll(context.Context) ([]domain.Lead, error) {
	return nil, errors.New("connection reset")
}

func (failingReader) ListAllHistory(context.Context) (map[int64][]domain.HistoryEntry, error) {
	return map[int64][]domain.HistoryEntry{}, nil
}

func TestHandlerServesFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(seededStore(t), time.UTC))
	h.now = func() time.Time { return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC) }
	r := gin.New()
	h.RegisterRoutes(r.Group("/exports"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/leads.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "leads-20260601.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\ufeff客户名称,"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/leads.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestHandlerReportsLoadFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(failingReader{}, time.UTC)).RegisterRoutes(r.Group("/exports"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exports/leads.xlsx", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEqual(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "connection reset")
}
