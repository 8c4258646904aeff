package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/pricing"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/repository/memstore"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fallbackID = uuid.MustParse("00000000-0000-0000-0000-00000000f00d")
	repID      = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	admin      = domain.Actor{UserID: fallbackID, Name: "超级管理员", Role: domain.RoleAdmin}
	rep        = domain.Actor{UserID: repID, Name: "范秋菊", Role: domain.RoleRepresentative}
	importDay  = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
)

type ownerMap map[string]uuid.UUID

func (o ownerMap) ResolveByName(_ context.Context, names []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID)
	for _, n := range names {
		if id, ok := o[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func newImporter(repo Repository) *Importer {
	clock := domain.Clock{Now: func() time.Time { return importDay.Add(10 * time.Hour) }, Location: time.UTC}
	return NewImporter(repo, ownerMap{"范秋菊": repID}, events.NewInMemoryBus(logger.Discard()), nil, logger.Discard(), Config{
		MaxRows:       10,
		FallbackOwner: fallbackID,
		Pricing:       pricing.Policy{},
		Clock:         clock,
	})
}

func newStore() *memstore.Store {
	store := memstore.New()
	store.AddOwner(fallbackID, admin.Name)
	store.AddOwner(repID, rep.Name)
	return store
}

func TestImportNormalizesAndRecomputesTotals(t *testing.T) {
	store := newStore()
	im := newImporter(store)
	ctx := context.Background()

	table := Table{
		Header: []string{"客户名称", "电话", "单价(元/㎡)", "平方数(㎡)", "施工费", "材料费", "运费(元)", "总金额", "对接人", "跟踪进度", "购买意向", "日期", "跟进记录/备注"},
		Rows: [][]string{
			{"星河装饰", "13800138000", "¥85", "100", "1,200", "", "300", "1", "范秋菊", "方案报价", "高", "2026-05-20", "展会认识"},
			{"蓝天建材", "", "abc", "10", "", "", "", "", "无名氏", "", "", "", ""},
		},
	}

	report, err := im.Import(ctx, admin, table)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rows)
	assert.Equal(t, 2, report.Inserted)
	assert.Empty(t, report.Skipped)
	assert.ElementsMatch(t, []RowWarning{
		{Row: 2, Field: "unitPrice", Input: "¥85"},
		{Row: 2, Field: "constructionFee", Input: "1,200"},
		{Row: 3, Field: "unitPrice", Input: "abc"},
		{Row: 3, Field: "owner", Input: "无名氏"},
	}, report.Warnings)

	leads, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	first := leads[0]
	assert.Equal(t, repID, first.OwnerID)
	assert.Equal(t, "+8613800138000", first.Phone)
	assert.Equal(t, 9700.0, first.TotalAmount, "85*100 + 1200, shipping and imported total ignored")
	assert.Equal(t, 300.0, first.ShippingFee)
	assert.Equal(t, domain.StageQuoted, first.Stage)
	assert.Equal(t, domain.IntentHigh, first.Intent)
	assert.Equal(t, time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC), first.CreatedDate)

	second := leads[1]
	assert.Equal(t, fallbackID, second.OwnerID)
	assert.Equal(t, 0.0, second.TotalAmount)
	assert.Equal(t, importDay, second.CreatedDate)
	require.NotNil(t, second.LastContactDate)
	assert.Equal(t, importDay, *second.LastContactDate)

	history, err := store.ListHistory(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryImported, history[0].Kind)
	assert.Equal(t, "展会认识", history[0].Body)

	history, err = store.ListHistory(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, importedNote, history[0].Body)
}

func TestImportMissingAreaColumnDefaultsToZero(t *testing.T) {
	store := newStore()
	im := newImporter(store)

	report, err := im.Import(context.Background(), admin, Table{
		Header: []string{"customer name", "unit price", "material fee"},
		Rows:   [][]string{{"Acme", "50", "20"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Inserted)

	leads, _ := store.ListAll(context.Background())
	assert.Equal(t, 0.0, leads[0].Area)
	assert.Equal(t, 20.0, leads[0].TotalAmount)
}

func TestImportMissingCustomerNameColumnInsertsNothing(t *testing.T) {
	store := newStore()
	im := newImporter(store)

	_, err := im.Import(context.Background(), admin, Table{
		Header: []string{"电话", "单价"},
		Rows:   [][]string{{"13800138000", "10"}},
	})
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindReconciliation, appErr.Kind)
	assert.Equal(t, 0, store.Len())
}

func TestImportSkipsDuplicatesAndBlankNames(t *testing.T) {
	store := newStore()
	store.Seed(domain.Lead{OwnerID: repID, CustomerName: "Existing"}, repository.Keys{NameKey: "existing", PhoneKey: "+8613900139000"})
	im := newImporter(store)

	report, err := im.Import(context.Background(), admin, Table{
		Header: []string{"name", "phone"},
		Rows: [][]string{
			{"EXISTING", ""},
			{"New One", "13900139000"},
			{"Fresh", "13700137000"},
			{"fresh", ""},
			{"Other", "137 0013 7000"},
			{"", "13600136000"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, report.Rows)
	assert.Equal(t, 1, report.Inserted)

	reasons := make(map[int]string)
	for _, s := range report.Skipped {
		reasons[s.Row] = s.Reason
	}
	assert.Equal(t, map[int]string{
		2: "customer already exists (lead 1, owner 范秋菊)",
		3: "phone already exists (lead 1, owner 范秋菊)",
		5: "duplicate of row 4",
		6: "duplicate phone of row 4",
		7: "missing customer name",
	}, reasons)
	assert.Equal(t, 2, store.Len())
}

type failingBatch struct {
	*memstore.Store
}

func (failingBatch) InsertBatch(context.Context, []repository.NewLead) (int, error) {
	return 0, errors.New("connection reset")
}

func TestImportStorageFailureAbortsBatch(t *testing.T) {
	store := newStore()
	im := newImporter(failingBatch{store})

	_, err := im.Import(context.Background(), admin, Table{
		Header: []string{"name"},
		Rows:   [][]string{{"A"}, {"B"}},
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindReconciliation, appErr.Kind)
	assert.Equal(t, map[string]any{"error": "connection reset"}, appErr.Details)
	assert.Equal(t, 0, store.Len())
}

func TestImportGuards(t *testing.T) {
	im := newImporter(newStore())
	ctx := context.Background()

	_, err := im.Import(ctx, rep, Table{Header: []string{"name"}})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	rows := make([][]string, 11)
	for i := range rows {
		rows[i] = []string{"x"}
	}
	_, err = im.Import(ctx, admin, Table{Header: []string{"name"}, Rows: rows})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPrepareWritesNothing(t *testing.T) {
	store := newStore()
	im := newImporter(store)

	batch, report, err := im.Prepare(context.Background(), admin, Table{
		Header: []string{"name", "stage"},
		Rows:   [][]string{{"A", "escalated"}},
	})
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, domain.StageFirstContact, batch[0].Lead.Stage)
	assert.Equal(t, []RowWarning{{Row: 2, Field: "stage", Input: "escalated"}}, report.Warnings)
	assert.Equal(t, 0, store.Len())
}
