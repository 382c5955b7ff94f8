package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/analytics"
	"github.com/sportcast/backend/internal/memstore"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/pkg/queue"
)

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeSource) Dequeue(_ context.Context, _ time.Duration) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	j := f.jobs[0]
	f.jobs = f.jobs[1:]
	return j, nil
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeSource) retries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried)
}

type failingReconciler struct{}

func (failingReconciler) Reconcile(context.Context, uuid.UUID) (*models.StreamAnalytics, error) {
	return nil, errors.New("connection refused")
}

func reconcileJob(t *testing.T, id uuid.UUID) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeReconcile, queue.ReconcilePayload{StreamID: id})
	require.NoError(t, err)
	return job
}

func TestProcessRepairsMessageCount(t *testing.T) {
	ctx := context.Background()
	db := memstore.New()
	s := &models.Stream{Title: "Final", Category: models.SportFootball, OwnerID: uuid.New()}
	require.NoError(t, db.Streams().Create(ctx, s))
	// messages written without their rollup increments
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Messages().Create(ctx, &models.Message{StreamID: s.ID, Content: "hi", Type: models.MessageTypeText}))
	}

	p := NewAnalyticsProcessor(analytics.NewAggregator(db.Analytics(), nil), &fakeSource{}, nil)
	require.NoError(t, p.Process(ctx, reconcileJob(t, s.ID)))

	a, err := db.Analytics().GetByStream(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalMessages)
}

func TestProcessDropsJobForDeletedStream(t *testing.T) {
	p := NewAnalyticsProcessor(analytics.NewAggregator(memstore.New().Analytics(), nil), &fakeSource{}, nil)
	assert.NoError(t, p.Process(context.Background(), reconcileJob(t, uuid.New())))
}

func TestProcessRejectsUnknownType(t *testing.T) {
	p := NewAnalyticsProcessor(failingReconciler{}, &fakeSource{}, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "email"})
	assert.ErrorContains(t, err, "unknown job type")
}

func TestRunRetriesFailedJobs(t *testing.T) {
	src := &fakeSource{jobs: []*queue.Job{reconcileJob(t, uuid.New())}}
	p := NewAnalyticsProcessor(failingReconciler{}, src, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.retries() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 1, src.retried[0].Attempt)
}
