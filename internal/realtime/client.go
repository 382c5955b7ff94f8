package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sportcast/backend/pkg/response"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the REST API; subscriptions carry no credentials
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event    string          `json:"event"`
	StreamID uuid.UUID       `json:"stream_id"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Client is one subscriber connection watching a single stream.
type Client struct {
	ID       string
	StreamID uuid.UUID
	conn     *websocket.Conn
	logger   *zap.Logger
}

// ServeWs upgrades GET /ws?stream_id=<id>&topics=a,b and streams matching bus events until the client goes away.
func ServeWs(bus *Bus, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		streamID, err := uuid.Parse(c.Query("stream_id"))
		if err != nil {
			response.BadRequest(c, "stream_id required")
			return
		}
		topics := ParseTopics(c.Query("topics"))
		if len(topics) == 0 {
			response.BadRequest(c, "no known topics requested")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			StreamID: streamID,
			conn:     conn,
			logger:   logger,
		}
		ctx, cancel := context.WithCancel(c.Request.Context())
		events := bus.Watch(ctx, streamID, topics...)
		logger.Debug("subscriber connected", zap.String("client_id", client.ID), zap.String("stream_id", streamID.String()))

		go client.writePump(ctx, cancel, events)
		client.readPump()
		cancel()
		logger.Debug("subscriber disconnected", zap.String("client_id", client.ID), zap.String("stream_id", streamID.String()))
	}
}

// readPump only services control frames; subscriptions are receive-only.
func (c *Client) readPump() {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc, events <-chan Event) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		cancel()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(WSMessage{Event: string(ev.Topic), StreamID: ev.StreamID, Data: ev.Data}); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
