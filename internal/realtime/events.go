package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
)

// Topic names an event stream on the bus.
type Topic string

const (
	TopicViewerCountChanged Topic = "viewer_count_changed"
	TopicScoreChanged       Topic = "score_changed"
	TopicStatusChanged      Topic = "status_changed"
	TopicMessageAdded       Topic = "message_added"
)

// AllTopics lists every topic a connection may subscribe to.
var AllTopics = []Topic{TopicViewerCountChanged, TopicScoreChanged, TopicStatusChanged, TopicMessageAdded}

// ParseTopics parses a comma-separated topic list. Unknown names are skipped; empty input means all topics.
func ParseTopics(s string) []Topic {
	if strings.TrimSpace(s) == "" {
		return AllTopics
	}
	known := make(map[Topic]bool, len(AllTopics))
	for _, t := range AllTopics {
		known[t] = true
	}
	seen := make(map[Topic]bool)
	var out []Topic
	for _, part := range strings.Split(s, ",") {
		t := Topic(strings.TrimSpace(part))
		if known[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Event is one published message. Subscribers filter on StreamID.
type Event struct {
	Topic    Topic           `json:"topic"`
	StreamID uuid.UUID       `json:"stream_id"`
	Data     json.RawMessage `json:"data"`
	At       int64           `json:"at"`
	// Origin is the publishing bus; a bridge listener skips its own events.
	Origin string `json:"origin,omitempty"`
}

// Publisher publishes events for a stream. Implemented by *Bus.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, streamID uuid.UUID, payload interface{}) error
}

// ViewerCountPayload is published on TopicViewerCountChanged.
type ViewerCountPayload struct {
	StreamID    uuid.UUID `json:"stream_id"`
	ViewerCount int       `json:"viewer_count"`
}

// ScorePayload is published on TopicScoreChanged.
type ScorePayload struct {
	StreamID  uuid.UUID `json:"stream_id"`
	HomeScore int       `json:"home_score"`
	AwayScore int       `json:"away_score"`
}

// StatusPayload is published on TopicStatusChanged.
type StatusPayload struct {
	StreamID  uuid.UUID           `json:"stream_id"`
	Status    models.StreamStatus `json:"status"`
	StartedAt *time.Time          `json:"started_at,omitempty"`
	EndedAt   *time.Time          `json:"ended_at,omitempty"`
}
