package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/models"
)

// racedLifecycle reports the stream as SCHEDULED on lookup while another callback wins the update.
type racedLifecycle struct {
	id uuid.UUID
}

func (l racedLifecycle) ByKey(context.Context, string) (*models.Stream, error) {
	return &models.Stream{ID: l.id, Status: models.StreamStatusScheduled}, nil
}

func (l racedLifecycle) StartByKey(context.Context, string) (*models.Stream, bool, error) {
	return &models.Stream{ID: l.id, Status: models.StreamStatusLive}, false, nil
}

func (l racedLifecycle) EndByKey(context.Context, string) (*models.Stream, bool, error) {
	return &models.Stream{ID: l.id, Status: models.StreamStatusEnded}, false, nil
}

type countingAnnouncer struct {
	mu   sync.Mutex
	sent []string
}

func (a *countingAnnouncer) SendSystem(_ context.Context, _ uuid.UUID, content string) (*models.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, content)
	return &models.Message{Content: content}, nil
}

func TestLostTransitionDoesNotAnnounce(t *testing.T) {
	ann := &countingAnnouncer{}
	b := NewBridge(racedLifecycle{id: uuid.New()}, ann, nil)

	_, err := b.Publish(context.Background(), "key")
	require.NoError(t, err)
	found, err := b.PublishDone(context.Background(), "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, ann.sent)
}

func TestConcurrentPublishAnnouncesOnce(t *testing.T) {
	e := newEnv(t)
	s := e.stream(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			form := url.Values{"app": {"live"}, "name": {s.SessionKey}}
			req := httptest.NewRequest(http.MethodPost, "/webhooks/ingest/on-publish", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			e.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	msgs := e.messages(t, s.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageStarted, msgs[0].Content)
}
