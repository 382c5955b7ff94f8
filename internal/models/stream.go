package models

import (
	"time"

	"github.com/google/uuid"
)

// StreamStatus is the broadcast lifecycle state. It only advances SCHEDULED -> LIVE -> ENDED.
type StreamStatus string

const (
	StreamStatusScheduled StreamStatus = "SCHEDULED"
	StreamStatusLive      StreamStatus = "LIVE"
	StreamStatusEnded     StreamStatus = "ENDED"
)

// Valid reports whether s is a known status.
func (s StreamStatus) Valid() bool {
	switch s {
	case StreamStatusScheduled, StreamStatusLive, StreamStatusEnded:
		return true
	}
	return false
}

// SportCategory is the sport being broadcast.
type SportCategory string

const (
	SportFootball   SportCategory = "FOOTBALL"
	SportBasketball SportCategory = "BASKETBALL"
	SportBaseball   SportCategory = "BASEBALL"
	SportHockey     SportCategory = "HOCKEY"
	SportSoccer     SportCategory = "SOCCER"
	SportTennis     SportCategory = "TENNIS"
	SportVolleyball SportCategory = "VOLLEYBALL"
	SportCricket    SportCategory = "CRICKET"
	SportOther      SportCategory = "OTHER"
)

// Valid reports whether c is a known category.
func (c SportCategory) Valid() bool {
	switch c {
	case SportFootball, SportBasketball, SportBaseball, SportHockey, SportSoccer,
		SportTennis, SportVolleyball, SportCricket, SportOther:
		return true
	}
	return false
}

// Stream is one live broadcast tied to an ingest feed identified by SessionKey.
type Stream struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Category     SportCategory `json:"category"`
	Status       StreamStatus  `json:"status"`
	OwnerID      uuid.UUID     `json:"owner_id"`
	SessionKey   string        `json:"session_key,omitempty"`
	IngestURL    string        `json:"ingest_url,omitempty"`
	PlaybackURL  string        `json:"playback_url,omitempty"`
	ViewerCount  int           `json:"viewer_count"`
	HomeTeam     *string       `json:"home_team,omitempty"`
	AwayTeam     *string       `json:"away_team,omitempty"`
	HomeScore    *int          `json:"home_score,omitempty"`
	AwayScore    *int          `json:"away_score,omitempty"`
	ThumbnailURL string        `json:"thumbnail_url,omitempty"`
	ScheduledAt  *time.Time    `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Public returns a copy without the ingest secret, for callers other than the owner.
func (s Stream) Public() Stream {
	s.SessionKey = ""
	s.IngestURL = ""
	return s
}

// StreamFilter narrows List. Zero value lists everything, newest first.
type StreamFilter struct {
	Status  *StreamStatus
	OwnerID *uuid.UUID
	Limit   int
	Offset  int
}

// StreamUpdate is a partial update of owner-editable fields; nil fields are left unchanged.
type StreamUpdate struct {
	Title        *string
	Description  *string
	Category     *SportCategory
	HomeTeam     *string
	AwayTeam     *string
	ThumbnailURL *string
	ScheduledAt  *time.Time
}
