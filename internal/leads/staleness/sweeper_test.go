package staleness

import (
	"context"
	"testing"
	"time"

	"leadtracker_backend/internal/events"
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/internal/leads/repository"
	"leadtracker_backend/internal/leads/repository/memstore"
	"leadtracker_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fallbackID = uuid.MustParse("00000000-0000-0000-0000-00000000f00d")
	repID      = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	today      = time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)
)

func daysAgo(n int) *time.Time {
	d := today.AddDate(0, 0, -n)
	return &d
}

func newStore() *memstore.Store {
	store := memstore.New()
	store.AddOwner(fallbackID, "超级管理员")
	store.AddOwner(repID, "范秋菊")
	return store
}

func seed(store *memstore.Store, name string, lastContact *time.Time, intent domain.Intent, owner uuid.UUID) domain.Lead {
	return store.Seed(domain.Lead{
		OwnerID:         owner,
		CustomerName:    name,
		CreatedDate:     today.AddDate(0, 0, -60),
		LastContactDate: lastContact,
		Stage:           domain.StageQuoted,
		Intent:          intent,
	}, repository.Keys{NameKey: name})
}

func newSweeper(store Store, opts ...Option) (*Sweeper, *events.InMemoryBus) {
	bus := events.NewInMemoryBus(logger.Discard())
	clock := domain.Clock{Now: func() time.Time { return today.Add(6 * time.Hour) }, Location: time.UTC}
	return NewSweeper(store, bus, logger.Discard(), Config{
		ThresholdDays: 20,
		FallbackOwner: fallbackID,
		FallbackName:  "超级管理员",
		Clock:         clock,
	}, opts...), bus
}

func TestSweepThresholdBoundary(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	stale := seed(store, "stale", daysAgo(21), domain.IntentHigh, repID)
	exact := seed(store, "exact", daysAgo(20), domain.IntentHigh, repID)
	fresh := seed(store, "fresh", daysAgo(19), domain.IntentHigh, repID)

	sweeper, _ := newSweeper(store)
	result, err := sweeper.Run(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, Result{Candidates: 1, Reassigned: 1}, result)

	got, err := store.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, fallbackID, got.OwnerID)
	assert.Equal(t, domain.StageEscalated, got.Stage)

	for _, id := range []int64{exact.ID, fresh.ID} {
		got, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, repID, got.OwnerID)
		assert.Equal(t, domain.StageQuoted, got.Stage)
	}

	history, err := store.ListHistory(ctx, stale.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryReassignment, history[0].Kind)
	assert.Nil(t, history[0].ActorID)
	assert.Equal(t, domain.SystemActorName, history[0].ActorName)
	assert.Equal(t, "stale 超过 21 天未跟进（最后联系 2026-05-09），2026-05-30 由 范秋菊 自动移交至 超级管理员", history[0].Body)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	lead := seed(store, "stale", daysAgo(30), domain.IntentLow, repID)

	sweeper, _ := newSweeper(store)
	_, err := sweeper.Run(ctx, "test")
	require.NoError(t, err)

	result, err := sweeper.Run(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Reassigned)
	assert.Equal(t, 0, result.Candidates)

	history, err := store.ListHistory(ctx, lead.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSweepSkipsIneligibleLeads(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	won := seed(store, "won", daysAgo(90), domain.IntentWon, repID)
	held := seed(store, "held", daysAgo(90), domain.IntentHigh, fallbackID)
	neverContacted := seed(store, "never", nil, domain.IntentMedium, repID)

	sweeper, _ := newSweeper(store)
	result, err := sweeper.Run(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reassigned)

	got, _ := store.GetByID(ctx, won.ID)
	assert.Equal(t, repID, got.OwnerID)
	got, _ = store.GetByID(ctx, held.ID)
	assert.Equal(t, domain.StageQuoted, got.Stage)
	got, _ = store.GetByID(ctx, neverContacted.ID)
	assert.Equal(t, fallbackID, got.OwnerID, "created date anchors leads never contacted")
}

// racingStore lets a concurrent follow-up refresh the lead between the
// candidate scan and the reassignment.
type racingStore struct {
	*memstore.Store
	beforeReassign func(id int64)
}

func (r racingStore) ReassignIfStale(ctx context.Context, id int64, fallback uuid.UUID, cutoff time.Time, entry repository.EntryFunc) (bool, error) {
	r.beforeReassign(id)
	return r.Store.ReassignIfStale(ctx, id, fallback, cutoff, entry)
}

func TestSweepRechecksEligibilityAtWriteTime(t *testing.T) {
	store := newStore()
	ctx := context.Background()
	lead := seed(store, "racing", daysAgo(40), domain.IntentHigh, repID)

	rs := racingStore{Store: store, beforeReassign: func(id int64) {
		_, err := store.Mutate(ctx, id, func(l *domain.Lead) (repository.Change, error) {
			l.LastContactDate = &today
			return repository.Change{}, nil
		})
		require.NoError(t, err)
	}}

	sweeper, _ := newSweeper(rs)
	result, err := sweeper.Run(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, Result{Candidates: 1, Reassigned: 0}, result)

	got, _ := store.GetByID(ctx, lead.ID)
	assert.Equal(t, repID, got.OwnerID)
}

func TestSweepPublishesEvents(t *testing.T) {
	store := newStore()
	seed(store, "a", daysAgo(25), domain.IntentHigh, repID)
	seed(store, "b", daysAgo(26), domain.IntentHigh, repID)

	sweeper, bus := newSweeper(store)
	reassigned := make(chan events.LeadReassigned, 2)
	completed := make(chan events.StaleSweepCompleted, 1)
	bus.Subscribe(events.LeadReassigned{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		reassigned <- e.(events.LeadReassigned)
		return nil
	}))
	bus.Subscribe(events.StaleSweepCompleted{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		completed <- e.(events.StaleSweepCompleted)
		return nil
	}))

	_, err := sweeper.Run(context.Background(), "schedule")
	require.NoError(t, err)
	bus.Wait()

	require.Len(t, reassigned, 2)
	first := <-reassigned
	assert.Equal(t, repID, first.PreviousOwner)
	assert.Equal(t, events.TriggerSweep, first.Trigger)

	done := <-completed
	assert.Equal(t, "schedule", done.Trigger)
	assert.Equal(t, 2, done.Reassigned)
	assert.False(t, done.Failed)
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	store := newStore()
	seed(store, "a", daysAgo(25), domain.IntentHigh, repID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sweeper, _ := newSweeper(store)
	result, err := sweeper.Run(ctx, "test")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Reassigned)
}

func TestSweepSkipsWhileLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newStore()
	seed(store, "a", daysAgo(25), domain.IntentHigh, repID)

	locker := NewRedisLocker(client, "", time.Minute)
	release, ok, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	sweeper, _ := newSweeper(store, WithLocker(locker))
	result, err := sweeper.Run(context.Background(), "test")
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	require.NoError(t, release(context.Background()))
	result, err = sweeper.Run(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reassigned)
	assert.False(t, mr.Exists(defaultLockKey), "lock is released after the pass")
}
