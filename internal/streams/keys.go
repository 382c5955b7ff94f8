package streams

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionKey returns a fresh ingest key: "live_" followed by 32 hex characters.
func NewSessionKey() string {
	return "live_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// URLBuilder derives ingest and playback URLs from a session key.
type URLBuilder struct {
	RTMPBase string
	HLSBase  string
}

// IngestURL is where the broadcaster pushes RTMP.
func (b URLBuilder) IngestURL(key string) string {
	return strings.TrimRight(b.RTMPBase, "/") + "/" + key
}

// PlaybackURL is the HLS playlist viewers load once the stream is live.
func (b URLBuilder) PlaybackURL(key string) string {
	return strings.TrimRight(b.HLSBase, "/") + "/" + key + ".m3u8"
}
