package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportcast/backend/internal/analytics"
	"github.com/sportcast/backend/internal/chat"
	"github.com/sportcast/backend/internal/memstore"
	"github.com/sportcast/backend/internal/models"
	"github.com/sportcast/backend/internal/realtime"
	"github.com/sportcast/backend/internal/streams"
	"github.com/sportcast/backend/pkg/response"
)

type env struct {
	router   *gin.Engine
	registry *streams.Registry
	chat     *chat.Service
	owner    uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := memstore.New()
	bus := realtime.NewBus(nil, nil)
	agg := analytics.NewAggregator(db.Analytics(), nil)
	reg := streams.NewRegistry(db.Streams(), agg, bus, streams.URLBuilder{RTMPBase: "rtmp://ingest/live", HLSBase: "http://cdn/hls"}, nil)
	chatSvc := chat.NewService(db.Messages(), db.Streams(), agg, bus, nil)

	r := gin.New()
	NewHandler(NewBridge(reg, chatSvc, nil), nil).Register(r.Group("/webhooks/ingest"))
	return &env{router: r, registry: reg, chat: chatSvc, owner: uuid.New()}
}

func (e *env) post(t *testing.T, hook, key string) (int, response.Body) {
	t.Helper()
	form := url.Values{"app": {"live"}, "name": {key}}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ingest/"+hook, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func (e *env) stream(t *testing.T) *models.Stream {
	t.Helper()
	s, err := e.registry.Create(context.Background(), e.owner, streams.CreateInput{Title: "Derby"})
	require.NoError(t, err)
	return s
}

func (e *env) messages(t *testing.T, id uuid.UUID) []models.Message {
	t.Helper()
	msgs, err := e.chat.List(context.Background(), id, 0, 0)
	require.NoError(t, err)
	return msgs
}

func TestOnPublishStartsStream(t *testing.T) {
	e := newEnv(t)
	s := e.stream(t)

	code, _ := e.post(t, "on-publish", s.SessionKey)
	assert.Equal(t, http.StatusOK, code)

	got, err := e.registry.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StreamStatusLive, got.Status)
	assert.NotNil(t, got.StartedAt)

	msgs := e.messages(t, s.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.MessageTypeSystem, msgs[0].Type)
	assert.Equal(t, MessageStarted, msgs[0].Content)

	// reconnecting encoder: accepted, no second announcement
	code, _ = e.post(t, "on-publish", s.SessionKey)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, e.messages(t, s.ID), 1)
}

func TestOnPublishRejectsUnknownAndEndedKeys(t *testing.T) {
	e := newEnv(t)
	code, _ := e.post(t, "on-publish", "live_nope")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = e.post(t, "on-publish", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	s := e.stream(t)
	ctx := context.Background()
	_, err := e.registry.Start(ctx, s.ID, e.owner)
	require.NoError(t, err)
	_, err = e.registry.End(ctx, s.ID, e.owner)
	require.NoError(t, err)

	code, _ = e.post(t, "on-publish", s.SessionKey)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOnPublishDoneEndsStream(t *testing.T) {
	e := newEnv(t)
	s := e.stream(t)
	code, _ := e.post(t, "on-publish", s.SessionKey)
	require.Equal(t, http.StatusOK, code)

	code, body := e.post(t, "on-publish-done", s.SessionKey)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)

	got, err := e.registry.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StreamStatusEnded, got.Status)

	msgs := e.messages(t, s.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, MessageEnded, msgs[0].Content)
}

func TestOnPublishDoneIsSoft(t *testing.T) {
	e := newEnv(t)

	code, body := e.post(t, "on-publish-done", "live_nope")
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Success)

	// never started: end fails, still 200
	s := e.stream(t)
	code, body = e.post(t, "on-publish-done", s.SessionKey)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, body.Success)
	assert.Empty(t, e.messages(t, s.ID))
}

func TestOnPlayRequiresLiveStream(t *testing.T) {
	e := newEnv(t)
	s := e.stream(t)

	code, body := e.post(t, "on-play", s.SessionKey)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "stream is not live", body.Error)

	code, _ = e.post(t, "on-play", "live_nope")
	assert.Equal(t, http.StatusUnauthorized, code)

	_, _ = e.post(t, "on-publish", s.SessionKey)
	code, _ = e.post(t, "on-play", s.SessionKey)
	assert.Equal(t, http.StatusOK, code)

	_, _ = e.post(t, "on-publish-done", s.SessionKey)
	code, _ = e.post(t, "on-play", s.SessionKey)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOnPlayDoneAlwaysAcknowledges(t *testing.T) {
	e := newEnv(t)
	code, body := e.post(t, "on-play-done", "whatever")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
}

func TestJSONCallbackBody(t *testing.T) {
	e := newEnv(t)
	s := e.stream(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ingest/on-publish", strings.NewReader(`{"name":"`+s.SessionKey+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
