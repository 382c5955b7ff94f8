//go:build integration

package streams

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/database"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/...
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 4, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = database.Migrate(ctx, pool, nil)
	require.NoError(t, err)
	return pool
}

func insertStream(t *testing.T, repo *Repository, key string, status models.StreamStatus) *models.Stream {
	t.Helper()
	s := &models.Stream{
		Title:      "Integration",
		Category:   models.SportFootball,
		Status:     status,
		OwnerID:    uuid.New(),
		SessionKey: key,
	}
	require.NoError(t, repo.Create(context.Background(), s))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), s.ID) })
	return s
}

func TestRepositoryViewerCounterClamps(t *testing.T) {
	repo := NewRepository(testPool(t))
	ctx := context.Background()
	s := insertStream(t, repo, "sk_"+uuid.NewString(), models.StreamStatusLive)

	n, err := repo.IncrementViewers(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for i := 0; i < 3; i++ {
		n, err = repo.DecrementViewers(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}
}

func TestRepositoryTransitionsAreConditional(t *testing.T) {
	repo := NewRepository(testPool(t))
	ctx := context.Background()
	s := insertStream(t, repo, "sk_"+uuid.NewString(), models.StreamStatusScheduled)
	start := time.Now().UTC().Truncate(time.Second)

	_, changed, err := repo.MarkEnded(ctx, s.ID, start)
	require.NoError(t, err)
	assert.False(t, changed)

	live, changed, err := repo.MarkLive(ctx, s.ID, start, "http://cdn/hls/x.m3u8")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StreamStatusLive, live.Status)

	_, changed, err = repo.MarkLive(ctx, s.ID, start.Add(time.Minute), "")
	require.NoError(t, err)
	assert.False(t, changed)

	ended, changed, err := repo.MarkEnded(ctx, s.ID, start.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, ended.StartedAt)
	assert.True(t, ended.StartedAt.Equal(start))
}

func TestRepositoryGetByKeyPrefersLive(t *testing.T) {
	repo := NewRepository(testPool(t))
	ctx := context.Background()
	key := "sk_" + uuid.NewString()
	insertStream(t, repo, key, models.StreamStatusEnded)
	live := insertStream(t, repo, key, models.StreamStatusLive)
	insertStream(t, repo, key, models.StreamStatusScheduled)

	got, err := repo.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
}
