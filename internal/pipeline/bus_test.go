package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(3, Inline())
	var got []string
	bus.Subscribe(func(Event) { got = append(got, "first") })
	bus.Subscribe(func(Event) { got = append(got, "second") })

	bus.Publish(Event{Type: EventProgress, Index: 1})

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(1, Inline())
	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{})
	unsubscribe()
	bus.Publish(Event{})

	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.Subscribers())
}

func TestBusStampsGeneration(t *testing.T) {
	bus := NewBus(7, nil)
	var got Event
	bus.Subscribe(func(ev Event) { got = ev })

	bus.Publish(Event{Type: EventFinished, Generation: 99})

	assert.Equal(t, uint64(7), got.Generation)
}

func TestBusDropsAfterClose(t *testing.T) {
	var queued []func()
	deferred := Dispatcher(func(fn func()) { queued = append(queued, fn) })
	bus := NewBus(1, deferred)
	calls := 0
	bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{})
	bus.Close()
	bus.Publish(Event{})
	for _, fn := range queued {
		fn()
	}

	assert.Len(t, queued, 1)
	assert.Zero(t, calls, "event queued before close must not be delivered")
	assert.True(t, bus.Closed())
}
