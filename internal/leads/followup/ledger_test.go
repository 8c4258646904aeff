package followup

import (
	"context"
	"testing"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/repository/memstore"
	"leadtracker_backend/internal/leads/transport"
	"leadtracker_backend/platform/apperr"
	"leadtracker_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ownerID = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	otherID = uuid.MustParse("00000000-0000-0000-0000-0000000000b2")
	owner   = domain.Actor{UserID: ownerID, Name: "周梦珂", Role: domain.RoleRepresentative}
	other   = domain.Actor{UserID: otherID, Name: "赵小安", Role: domain.RoleRepresentative}
	admin   = domain.Actor{UserID: uuid.New(), Name: "超级管理员", Role: domain.RoleAdmin}
)

func setup(t *testing.T, now time.Time) (*Ledger, *memstore.Store, *events.InMemoryBus) {
	t.Helper()
	store := memstore.New()
	store.AddOwner(ownerID, owner.Name)
	store.AddOwner(otherID, other.Name)
	bus := events.NewInMemoryBus(logger.Discard())
	clock := domain.Clock{Now: func() time.Time { return now }, Location: time.UTC}
	return New(store, bus, clock), store, bus
}

func day(d int) time.Time {
	return time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC)
}

func TestAppendUpdatesMarkersAndKeepsHistoryOrdered(t *testing.T) {
	now := time.Date(2026, 4, 15, 14, 5, 0, 0, time.UTC)
	ledger, store, bus := setup(t, now)
	ctx := context.Background()

	last := day(1)
	lead := store.Seed(domain.Lead{OwnerID: ownerID, CustomerName: "Lead", CreatedDate: day(1),
		LastContactDate: &last, Stage: domain.StageFirstContact, Intent: domain.IntentMedium},
		repository.Keys{NameKey: "lead"})
	require.NoError(t, store.AppendHistory(ctx, domain.HistoryEntry{LeadID: lead.ID, Kind: domain.HistoryCreated,
		ActorName: owner.Name, Body: "录入", OccurredAt: day(1)}))

	var logged []events.FollowUpLogged
	done := make(chan struct{}, 1)
	bus.Subscribe(events.FollowUpLogged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		logged = append(logged, e.(events.FollowUpLogged))
		done <- struct{}{}
		return nil
	}))

	resp, err := ledger.Append(ctx, owner, lead.ID, transport.FollowUpRequest{
		Note:            "客户要求寄样",
		NextContactDate: transport.FlexOf("2026-04-20"),
		Stage:           "sampled",
		PurchaseIntent:  "高",
	})
	require.NoError(t, err)
	<-done
	bus.Wait()

	assert.Equal(t, "2026-04-15", *resp.LastContactDate)
	assert.Equal(t, "2026-04-20", *resp.NextContactDate)
	assert.Equal(t, string(domain.StageSampled), resp.Stage)
	assert.Equal(t, string(domain.IntentHigh), resp.PurchaseIntent)

	require.Len(t, resp.FollowUpHistory, 2)
	assert.Equal(t, "录入", resp.FollowUpHistory[0].Body)
	assert.Equal(t, "[2026-04-15 14:05] 周梦珂: 客户要求寄样", resp.FollowUpHistory[1].Line)
	assert.Equal(t, string(domain.HistoryFollowUp), resp.FollowUpHistory[1].Kind)

	require.Len(t, logged, 1)
	assert.Equal(t, lead.ID, logged[0].LeadID)
}

func TestAppendKeepsStageAndIntentWhenOmitted(t *testing.T) {
	ledger, store, _ := setup(t, time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC))
	next := day(30)
	lead := store.Seed(domain.Lead{OwnerID: ownerID, CustomerName: "Lead", CreatedDate: day(1),
		NextContactDate: &next, Stage: domain.StageQuoted, Intent: domain.IntentLow},
		repository.Keys{NameKey: "lead"})

	resp, err := ledger.Append(context.Background(), admin, lead.ID, transport.FollowUpRequest{Note: "电话未接"})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StageQuoted), resp.Stage)
	assert.Equal(t, string(domain.IntentLow), resp.PurchaseIntent)
	assert.Equal(t, "2026-04-30", *resp.NextContactDate)
	assert.Equal(t, "2026-04-15", *resp.LastContactDate)
}

func TestAppendNeverMovesLastContactBackwards(t *testing.T) {
	ledger, store, _ := setup(t, time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC))
	future := day(20)
	lead := store.Seed(domain.Lead{OwnerID: ownerID, CustomerName: "Lead", CreatedDate: day(1),
		LastContactDate: &future}, repository.Keys{NameKey: "lead"})

	resp, err := ledger.Append(context.Background(), owner, lead.ID, transport.FollowUpRequest{Note: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "2026-04-20", *resp.LastContactDate)
}

func TestAppendRejections(t *testing.T) {
	ledger, store, _ := setup(t, time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	lead := store.Seed(domain.Lead{OwnerID: ownerID, CustomerName: "Lead", CreatedDate: day(1)},
		repository.Keys{NameKey: "lead"})

	cases := []struct {
		name  string
		actor domain.Actor
		id    int64
		req   transport.FollowUpRequest
		kind  apperr.Kind
	}{
		{"other representative", other, lead.ID, transport.FollowUpRequest{Note: "x"}, apperr.KindForbidden},
		{"missing lead", owner, 404, transport.FollowUpRequest{Note: "x"}, apperr.KindNotFound},
		{"blank note", owner, lead.ID, transport.FollowUpRequest{Note: "  "}, apperr.KindValidation},
		{"escalated stage", owner, lead.ID, transport.FollowUpRequest{Note: "x", Stage: "escalated"}, apperr.KindValidation},
		{"unknown intent", owner, lead.ID, transport.FollowUpRequest{Note: "x", PurchaseIntent: "maybe"}, apperr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Append(ctx, tc.actor, tc.id, tc.req)
			assert.True(t, apperr.Is(err, tc.kind), "got %v", err)
		})
	}

	history, err := store.ListHistory(ctx, lead.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
