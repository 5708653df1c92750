// Package bus carries login progress from the polling machine to whichever
// presentation surface is listening.
package bus

import (
	"fmt"

	eventbus "github.com/asaskevich/EventBus"
)

type Subscriber interface {
	Subscribe(topic string, fn any) error
	// SubscribeAsync runs fn on its own goroutine so slow listeners never
	// hold up the publisher. Calls for one topic are serialised.
	SubscribeAsync(topic string, fn any) error
	Unsubscribe(topic string, handler any) error
}

type Publisher interface {
	Publish(topic string, args ...any)
}

type Bus interface {
	Subscriber
	Publisher
	// WaitAsync blocks until all asynchronous handlers have returned.
	WaitAsync()
}

func New() Bus {
	return &EventBus{eventbus.New()}
}

type EventBus struct {
	bus eventbus.Bus
}

func (e *EventBus) Publish(topic string, args ...any) {
	e.bus.Publish(topic, args...)
}

func (e *EventBus) Subscribe(topic string, handler any) error {
	return e.bus.Subscribe(topic, handler)
}

func (e *EventBus) SubscribeAsync(topic string, handler any) error {
	return e.bus.SubscribeAsync(topic, handler, true)
}

func (e *EventBus) Unsubscribe(topic string, handler any) error {
	return e.bus.Unsubscribe(topic, handler)
}

func (e *EventBus) WaitAsync() {
	e.bus.WaitAsync()
}

// Listen subscribes handler asynchronously and returns a function that
// removes it again.
func Listen(s Subscriber, topic string, handler any) (func(), error) {
	if err := s.SubscribeAsync(topic, handler); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return func() { _ = s.Unsubscribe(topic, handler) }, nil
}

type NoopBus struct{}

func (b *NoopBus) Publish(topic string, args ...any)              {}
func (b *NoopBus) Subscribe(topic string, handler any) error      { return nil }
func (b *NoopBus) SubscribeAsync(topic string, handler any) error { return nil }
func (b *NoopBus) Unsubscribe(topic string, handler any) error    { return nil }
func (b *NoopBus) WaitAsync()                                     {}
