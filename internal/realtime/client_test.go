package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func wsServer(t *testing.T, bus *Bus) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", ServeWs(bus, zap.NewNop()))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWsDeliversOnlyWatchedStream(t *testing.T) {
	bus := NewBus(nil, nil)
	srv := wsServer(t, bus)
	watched, other := uuid.New(), uuid.New()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?stream_id=" + watched.String() + "&topics=score_changed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return bus.Stats().Subscribers == 1 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, TopicScoreChanged, other, ScorePayload{StreamID: other, HomeScore: 9}))
	require.NoError(t, bus.Publish(ctx, TopicMessageAdded, watched, map[string]string{"content": "hi"}))
	require.NoError(t, bus.Publish(ctx, TopicScoreChanged, watched, ScorePayload{StreamID: watched, HomeScore: 2, AwayScore: 1}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(TopicScoreChanged), msg.Event)
	assert.Equal(t, watched, msg.StreamID)
	assert.Contains(t, string(msg.Data), `"home_score":2`)
}

func TestServeWsUnsubscribesOnDisconnect(t *testing.T) {
	bus := NewBus(nil, nil)
	srv := wsServer(t, bus)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?stream_id=" + uuid.NewString()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bus.Stats().Subscribers == len(AllTopics) }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return bus.Stats().Subscribers == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWsRejectsBadQuery(t *testing.T) {
	srv := wsServer(t, NewBus(nil, nil))

	resp, err := http.Get(srv.URL + "/ws?stream_id=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/ws?stream_id=" + uuid.NewString() + "&topics=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
