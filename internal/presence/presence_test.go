package presence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/analytics"
	"github.com/sportcast/backend/internal/memstore"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/internal/realtime"
	"github.com/sportcast/backend/pkg/apperr"
)

func setup(t *testing.T) (*Service, *memstore.DB, *realtime.Bus, uuid.UUID) {
	t.Helper()
	db := memstore.New()
	bus := realtime.NewBus(nil, nil)
	s := &models.Stream{Title: "Derby", Category: models.SportSoccer, Status: models.StreamStatusLive, OwnerID: uuid.New(), SessionKey: "live_x"}
	require.NoError(t, db.Streams().Create(context.Background(), s))
	svc := NewService(db.Streams(), analytics.NewAggregator(db.Analytics(), nil), bus, nil)
	return svc, db, bus, s.ID
}

func TestConcurrentJoins(t *testing.T) {
	svc, db, _, id := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(ctx, id, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := db.Streams().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, s.ViewerCount)

	stats, err := db.Analytics().GetByStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalViews)
	assert.Equal(t, 3, stats.PeakViewers)
}

func TestLeaveClampsAtZero(t *testing.T) {
	svc, db, _, id := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Join(ctx, id, "")
		require.NoError(t, err)
	}
	var n int
	var err error
	for i := 0; i < 5; i++ {
		n, err = svc.Leave(ctx, id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 0)
	}
	assert.Equal(t, 0, n)

	s, err := db.Streams().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, s.ViewerCount)
}

func TestViewerCountNeverNegativeUnderInterleaving(t *testing.T) {
	svc, db, _, id := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			n, err := svc.Leave(ctx, id)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, n, 0)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Join(ctx, id, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := db.Streams().GetByID(ctx, id)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.ViewerCount, 0)
	assert.LessOrEqual(t, s.ViewerCount, 50)
}

func TestPeakIsNonDecreasing(t *testing.T) {
	svc, db, _, id := setup(t)
	ctx := context.Background()

	prev := 0
	for i := 0; i < 10; i++ {
		_, err := svc.Join(ctx, id, "")
		require.NoError(t, err)
		stats, err := db.Analytics().GetByStream(ctx, id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.PeakViewers, prev)
		prev = stats.PeakViewers
	}
	assert.Equal(t, 10, prev)

	_, err := svc.Leave(ctx, id)
	require.NoError(t, err)
	stats, err := db.Analytics().GetByStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.PeakViewers)
}

func TestUniqueViewers(t *testing.T) {
	svc, db, _, id := setup(t)
	ctx := context.Background()
	alice, bob := uuid.NewString(), uuid.NewString()

	for _, v := range []string{alice, bob, alice, "", ""} {
		_, err := svc.Join(ctx, id, v)
		require.NoError(t, err)
	}
	stats, err := db.Analytics().GetByStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueViewers)
	assert.ElementsMatch(t, []string{alice, bob}, stats.UniqueViewerIDs)
}

func TestJoinPublishesPostIncrementCount(t *testing.T) {
	svc, _, bus, id := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := bus.Watch(ctx, id, realtime.TopicViewerCountChanged)

	_, err := svc.Join(ctx, id, "")
	require.NoError(t, err)
	_, err = svc.Join(ctx, id, "")
	require.NoError(t, err)
	_, err = svc.Leave(ctx, id)
	require.NoError(t, err)

	var got []int
	for i := 0; i < 3; i++ {
		ev := <-events
		var p realtime.ViewerCountPayload
		require.NoError(t, json.Unmarshal(ev.Data, &p))
		got = append(got, p.ViewerCount)
	}
	assert.Equal(t, []int{1, 2, 1}, got)
}

func TestUnknownStream(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.Join(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Leave(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type brokenAnalytics struct{ analytics.Store }

func (brokenAnalytics) RecordView(context.Context, uuid.UUID, int, string) error {
	return errors.New("connection reset")
}

func TestAnalyticsFailureDoesNotFailJoin(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	s := &models.Stream{Title: "Derby", Category: models.SportSoccer, Status: models.StreamStatusLive, OwnerID: uuid.New()}
	require.NoError(t, db.Streams().Create(ctx, s))
	agg := analytics.NewAggregator(brokenAnalytics{db.Analytics()}, nil)
	svc := NewService(db.Streams(), agg, realtime.NewBus(nil, nil), nil)

	n, err := svc.Join(ctx, s.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := db.Analytics().GetByStream(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalViews)
}
