// Package memstore keeps streams, analytics, chat and subscriptions in process memory.
// It honours the same contracts as the Postgres repositories (atomic counters, conditional
// transitions, cascade on delete) and backs STORE_DRIVER=memory and the package tests.
package memstore

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sportcast/backend/internal/models"
)

// DB is the shared state behind the per-table stores. One mutex guards everything, which gives
// every method the single-row atomicity the SQL statements have.
type DB struct {
	mu            sync.Mutex
	streams       map[uuid.UUID]*models.Stream
	analytics     map[uuid.UUID]*models.StreamAnalytics
	messages      []models.Message
	subscriptions map[uuid.UUID]*models.Subscription
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		streams:       make(map[uuid.UUID]*models.Stream),
		analytics:     make(map[uuid.UUID]*models.StreamAnalytics),
		subscriptions: make(map[uuid.UUID]*models.Subscription),
	}
}

// Streams returns the streams table.
func (db *DB) Streams() *Streams { return &Streams{db: db} }

// Analytics returns the stream_analytics table.
func (db *DB) Analytics() *Analytics { return &Analytics{db: db} }

// Messages returns the messages table.
func (db *DB) Messages() *Messages { return &Messages{db: db} }

// Subscriptions returns the subscriptions table.
func (db *DB) Subscriptions() *Subscriptions { return &Subscriptions{db: db} }

// now matches Postgres timestamptz precision so values round-trip the same way in both drivers.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
