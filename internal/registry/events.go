package registry

import (
	"sync"

	"github.com/google/uuid"
)

// Event represents a registry lifecycle event.
// Minimal and stable: operation id + name + model name and optional fields.
type Event struct {
	// ID is a unique operation id assigned at publish time.
	ID     string
	Name   string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the registry. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func (r *Registry) publish(name, model string, fields map[string]any) {
	r.publisher.Publish(Event{ID: uuid.NewString(), Name: name, Model: model, Fields: fields})
}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher returns an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
