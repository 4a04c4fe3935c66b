package bus

import (
	"fmt"
	"log/slog"
	"sync"
)

// Channel delivers events of one kind to its subscribers in emission order.
// An event published while another is being delivered is queued behind it,
// so delivery stays FIFO even when handlers publish.
type Channel[T any] struct {
	name   string
	logger *slog.Logger

	mu         sync.Mutex
	subs       []*subscription[T]
	queue      []T
	delivering bool
}

type subscription[T any] struct {
	mu     sync.Mutex
	fn     func(T)
	active bool
}

func (s *subscription[T]) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NewChannel creates a named channel
func NewChannel[T any](name string, logger *slog.Logger) *Channel[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel[T]{name: name, logger: logger}
}

// Name returns the channel name used in logs
func (c *Channel[T]) Name() string { return c.name }

// Subscribe registers fn. The returned disposer stops delivery immediately,
// including for the event currently being delivered. It is safe to call
// from inside fn and more than once.
func (c *Channel[T]) Subscribe(fn func(T)) (dispose func()) {
	sub := &subscription[T]{fn: fn, active: true}

	c.mu.Lock()
	// copy on write: an in-flight delivery keeps iterating its own slice
	next := make([]*subscription[T], len(c.subs), len(c.subs)+1)
	copy(next, c.subs)
	c.subs = append(next, sub)
	c.mu.Unlock()

	return func() {
		sub.mu.Lock()
		wasActive := sub.active
		sub.active = false
		sub.mu.Unlock()
		if !wasActive {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		next := make([]*subscription[T], 0, len(c.subs))
		for _, s := range c.subs {
			if s != sub {
				next = append(next, s)
			}
		}
		c.subs = next
	}
}

// Publish delivers ev to every active subscriber. When called during a
// delivery, ev is queued and delivered by the outer call once the current
// event has reached all subscribers.
func (c *Channel[T]) Publish(ev T) {
	c.mu.Lock()
	c.queue = append(c.queue, ev)
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.delivering = false
			c.mu.Unlock()
			return
		}
		next := c.queue[0]
		var zero T
		c.queue[0] = zero
		c.queue = c.queue[1:]
		subs := c.subs
		c.mu.Unlock()

		for _, sub := range subs {
			if !sub.isActive() {
				continue
			}
			c.deliver(sub, next)
		}
	}
}

// Len returns the number of active subscribers
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Channel[T]) deliver(sub *subscription[T], ev T) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscriber panicked",
				"channel", c.name,
				"event", fmt.Sprintf("%+v", ev),
				"panic", r,
			)
		}
	}()
	sub.fn(ev)
}
