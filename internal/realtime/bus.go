package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscription channel size. A full buffer drops events for that subscriber.
const DefaultBuffer = 64

const (
	listenRetryMin = time.Second
	listenRetryMax = 30 * time.Second
)

// Bridge carries events between instances. Publish sends to every instance, this one included;
// Listen delivers everything received until ctx is done or the connection fails.
type Bridge interface {
	Publish(ctx context.Context, ev Event) error
	Listen(ctx context.Context, deliver func(Event)) error
}

// Bus is a topic-keyed publish/subscribe hub. It publishes unfiltered to every subscriber of a topic;
// stream filtering happens on the subscriber side (see Watch).
type Bus struct {
	mu     sync.RWMutex
	topics map[Topic]map[uint64]*Subscription
	nextID uint64
	bridge Bridge
	origin string
	retry  time.Duration
	logger *zap.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Stats is a snapshot of bus counters.
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Delivered   uint64 `json:"delivered"`
	Dropped     uint64 `json:"dropped"`
}

// NewBus creates an event bus. bridge may be nil for single-instance deployments.
func NewBus(logger *zap.Logger, bridge Bridge) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		topics: make(map[Topic]map[uint64]*Subscription),
		bridge: bridge,
		origin: uuid.NewString(),
		retry:  listenRetryMin,
		logger: logger,
	}
}

// Publish marshals payload, delivers it to local subscribers and then forwards it to the bridge.
// Local delivery does not depend on the bridge; a bridge error is returned after it.
func (b *Bus) Publish(ctx context.Context, topic Topic, streamID uuid.UUID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	ev := Event{Topic: topic, StreamID: streamID, Data: data, At: time.Now().UnixMilli(), Origin: b.origin}
	b.published.Add(1)
	b.Deliver(ev)
	if b.bridge != nil {
		if err := b.bridge.Publish(ctx, ev); err != nil {
			return fmt.Errorf("bridge publish %s: %w", topic, err)
		}
	}
	return nil
}

// Deliver hands ev to local subscribers of its topic without blocking.
func (b *Bus) Deliver(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.topics[ev.Topic] {
		select {
		case s.ch <- ev:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
		}
	}
}

// Run relays events from other instances to local subscribers until ctx is done. A failed listener
// is restarted with exponential backoff. No-op without a bridge.
func (b *Bus) Run(ctx context.Context) error {
	if b.bridge == nil {
		<-ctx.Done()
		return nil
	}
	wait := b.retry
	for {
		b.logger.Info("event bus bridge listening")
		err := b.bridge.Listen(ctx, b.relay)
		if ctx.Err() != nil {
			return nil
		}
		b.logger.Warn("event bus bridge stopped; retrying", zap.Duration("in", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if wait *= 2; wait > listenRetryMax {
			wait = listenRetryMax
		}
	}
}

// relay delivers bridge traffic, skipping events this bus already delivered in Publish.
func (b *Bus) relay(ev Event) {
	if ev.Origin == b.origin {
		return
	}
	b.Deliver(ev)
}

// Subscribe registers a listener for topic. Call Close when done.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscription{id: b.nextID, topic: topic, ch: make(chan Event, DefaultBuffer), bus: b}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[uint64]*Subscription)
	}
	b.topics[topic][s.id] = s
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	if m, ok := b.topics[s.topic]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(b.topics, s.topic)
		}
	}
	b.mu.Unlock()
	close(s.ch)
}

// Watch subscribes to topics and returns only events for streamID. The channel is closed after ctx is done.
func (b *Bus) Watch(ctx context.Context, streamID uuid.UUID, topics ...Topic) <-chan Event {
	out := make(chan Event, DefaultBuffer)
	subs := make([]*Subscription, 0, len(topics))
	for _, t := range topics {
		subs = append(subs, b.Subscribe(t))
	}

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s *Subscription) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-s.Events():
					if !ok {
						return
					}
					if ev.StreamID != streamID {
						continue
					}
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(s)
	}
	go func() {
		<-ctx.Done()
		for _, s := range subs {
			s.Close()
		}
		wg.Wait()
		close(out)
	}()
	return out
}

// Stats returns current counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := 0
	for _, m := range b.topics {
		n += len(m)
	}
	b.mu.RUnlock()
	return Stats{
		Subscribers: n,
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
	}
}

// Subscription is one listener on one topic.
type Subscription struct {
	id    uint64
	topic Topic
	ch    chan Event
	bus   *Bus
	once  sync.Once
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.remove(s) })
}
