// Package eventbus implements the progress-event emission hook the core
// exposes for any UI layer to subscribe to (§9 DESIGN NOTES): every
// phase transition in processor.Processor and orchestrator.Orchestrator
// is both delivered in-process via a callback and, when configured,
// published to a NATS subject so an out-of-process UI can subscribe over the network instead of linking against the core
// package directly.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Event is one progress notification, matching the (phase, message)
// shape processor.ProgressFunc and orchestrator's OnProgress already
// emit in-process.
type Event struct {
	Phase     string    `json:"phase"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber receives events delivered in-process.
type Subscriber func(Event)

// Bus fans a stream of Events out to in-process subscribers and,
// optionally, to a NATS subject. The NATS connection is entirely
// optional: Bus works as a pure in-process pub/sub hook when NATSURL
// is empty, and callers should treat publish failures on the network
// side as non-fatal (a disconnected UI must never block the core
// lifecycle).
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber

	nc      *nats.Conn
	subject string
}

// Config configures a Bus's optional NATS transport.
type Config struct {
	NATSURL string // empty disables network fan-out
	Subject string // defaults to "tac.events"
}

// New creates a Bus. If cfg.NATSURL is set, it dials NATS; a dial
// failure is returned rather than silently degrading, since the caller
// explicitly asked for network fan-out.
func New(cfg Config) (*Bus, error) {
	b := &Bus{subject: cfg.Subject}
	if b.subject == "" {
		b.subject = "tac.events"
	}
	if cfg.NATSURL == "" {
		return b, nil
	}
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	b.nc = nc
	return b, nil
}

// Subscribe registers an in-process subscriber and returns an unsubscribe
// function.
func (b *Bus) Subscribe(sub Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
	idx := len(b.subscribers) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subscribers[idx] = nil
	}
}

// Publish delivers ev to every in-process subscriber and, if a NATS
// connection is configured, to the subject as JSON. A marshal or NATS
// publish failure is returned to the caller; OnProgress discards it so
// a UI-side outage never interrupts the block lifecycle.
func (b *Bus) Publish(ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subscribers...)
	b.mu.RUnlock()
	for _, sub := range subs {
		if sub != nil {
			sub(ev)
		}
	}

	if b.nc == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.nc.Publish(b.subject, payload); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	return nil
}

// OnProgress adapts Bus to the processor.ProgressFunc / orchestrator
// OnProgress callback shape used throughout the core.
func (b *Bus) OnProgress(phase, message string) {
	_ = b.Publish(Event{Phase: phase, Message: message})
}

// Close drains the NATS connection, if any.
func (b *Bus) Close() {
	if b.nc != nil {
		b.nc.Close()
	}
}
