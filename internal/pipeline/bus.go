package pipeline

import (
	"sync"
	"sync/atomic"

	"thermo-gui/internal/models"
)

// EventType tags what a worker emitted
type EventType int

const (
	EventFrame EventType = iota
	EventProgress
	EventFinished
)

func (t EventType) String() string {
	switch t {
	case EventFrame:
		return "frame"
	case EventProgress:
		return "progress"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is one emission from a worker. Generation identifies the worker that sent it.
type Event struct {
	Type       EventType
	Generation uint64
	Kind       models.FrameKind
	Frame      models.Frame
	Index      int
	Finished   bool
}

// Handler receives events on the dispatcher's thread
type Handler func(Event)

// Dispatcher runs fn on the thread that owns the presentation layer. Calls must be
// executed in submission order and never concurrently with each other.
type Dispatcher func(fn func())

// Inline returns a Dispatcher that runs fn on the caller's goroutine, serialized by a mutex.
// Used headless and in tests.
func Inline() Dispatcher {
	var mu sync.Mutex
	return func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}
}

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans worker events out to subscribers. A closed bus drops everything, including
// events already handed to the dispatcher but not yet delivered.
type Bus struct {
	generation uint64
	dispatch   Dispatcher

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	closed atomic.Bool
}

// NewBus creates a bus stamping events with generation
func NewBus(generation uint64, dispatch Dispatcher) *Bus {
	if dispatch == nil {
		dispatch = Inline()
	}
	return &Bus{generation: generation, dispatch: dispatch}
}

// Subscribe registers h and returns a function removing it
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Subscribers returns the number of registered handlers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish hands ev to the dispatcher for delivery to every subscriber
func (b *Bus) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	ev.Generation = b.generation

	b.mu.RLock()
	handlers := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	b.dispatch(func() {
		if b.closed.Load() {
			return
		}
		for _, h := range handlers {
			h(ev)
		}
	})
}

// Close stops all further delivery
func (b *Bus) Close() {
	b.closed.Store(true)
}

// Closed reports whether Close was called
func (b *Bus) Closed() bool {
	return b.closed.Load()
}

// Generation returns the worker generation this bus stamps
func (b *Bus) Generation() uint64 {
	return b.generation
}
