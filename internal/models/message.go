package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes viewer chat from system announcements.
type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeEmoji  MessageType = "EMOJI"
	MessageTypeSystem MessageType = "SYSTEM"
)

// MaxMessageLength is the maximum chat message length in characters.
const MaxMessageLength = 500

// MaxSenderNameLength matches messages.sender_name; longer names are cut to fit.
const MaxSenderNameLength = 100

// Message is an immutable chat line. SenderName is captured at send time.
type Message struct {
	ID         uuid.UUID   `json:"id"`
	StreamID   uuid.UUID   `json:"stream_id"`
	SenderID   *uuid.UUID  `json:"sender_id,omitempty"`
	SenderName string      `json:"sender_name"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}
