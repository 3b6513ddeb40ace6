// Package eventbus provides a lightweight, in-process typed publish/subscribe
// bus. It complements monitoring.ObserverManager: ObserverManager is a fixed,
// closed set of lifecycle callbacks wired at engine construction time;
// Bus is an open, dynamically-subscribable channel keyed by topic, for
// callers (plugins, workflow triggers waiting on a sibling node, test
// harnesses) that need to listen for specific events without implementing
// the full ExecutionObserver contract.
package eventbus

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Event is a single message published on the bus.
type Event struct {
	Topic         string
	Payload       any
	CorrelationID string
	CausationID   string
	Timestamp     time.Time
}

// Handler receives events matching a subscription.
type Handler func(ctx context.Context, event Event)

// Filter further narrows a subscription beyond its topic pattern. A nil
// filter matches everything.
type Filter func(Event) bool

// Unsubscribe removes a subscription. Calling it more than once is safe.
type Unsubscribe func()

type subscription struct {
	id       uint64
	pattern  string
	priority int
	once     bool
	filter   Filter
	handler  Handler
}

// Bus is a priority-ordered, wildcard-matching, in-process event bus. The
// zero value is not usable; construct with New.
type Bus struct {
	mu     sync.Mutex
	subs   []*subscription
	nextID uint64
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler to be called for every future Emit whose
// topic matches pattern (supporting a single trailing "*" wildcard segment,
// e.g. "node.*") and, if filter is non-nil, for which filter also returns
// true. Handlers run in descending priority order; among equal priorities,
// registration order is preserved. If once is true the subscription is
// removed after its first matching delivery. The returned Unsubscribe
// removes the subscription early.
func (b *Bus) Subscribe(pattern string, priority int, once bool, filter Filter, handler Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{
		id:       b.nextID,
		pattern:  pattern,
		priority: priority,
		once:     once,
		filter:   filter,
		handler:  handler,
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once2 sync.Once
	return func() {
		once2.Do(func() { b.unsubscribe(sub.id) })
	}
}

// Unsubscribe removes every subscription registered against pattern. Prefer
// the Unsubscribe closure returned by Subscribe to remove a single one.
func (b *Bus) Unsubscribe(pattern string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.subs[:0]
	for _, s := range b.subs {
		if s.pattern != pattern {
			kept = append(kept, s)
		}
	}
	b.subs = kept
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit publishes an event on topic. Handlers are invoked synchronously, in
// priority order, without holding the bus's internal lock - a handler is
// free to Subscribe/Emit/Unsubscribe in response.
func (b *Bus) Emit(ctx context.Context, topic string, payload any, correlationID string) {
	b.dispatch(ctx, Event{
		Topic:         topic,
		Payload:       payload,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	})
}

// EmitCaused is Emit plus an explicit causationID, for events raised as a
// direct consequence of handling some other event.
func (b *Bus) EmitCaused(ctx context.Context, topic string, payload any, correlationID, causationID string) {
	b.dispatch(ctx, Event{
		Topic:         topic,
		Payload:       payload,
		CorrelationID: correlationID,
		CausationID:   causationID,
		Timestamp:     time.Now(),
	})
}

func (b *Bus) dispatch(ctx context.Context, ev Event) {
	b.mu.Lock()
	var matched []*subscription
	for _, s := range b.subs {
		if matchTopic(s.pattern, ev.Topic) && (s.filter == nil || s.filter(ev)) {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].priority > matched[j].priority })
	b.mu.Unlock()

	var onceIDs []uint64
	for _, s := range matched {
		s.handler(ctx, ev)
		if s.once {
			onceIDs = append(onceIDs, s.id)
		}
	}

	for _, id := range onceIDs {
		b.unsubscribe(id)
	}
}

// WaitFor blocks until an event matching pattern and filter is emitted, or
// ctx is cancelled. It is built on a one-shot Subscribe.
func (b *Bus) WaitFor(ctx context.Context, pattern string, filter Filter) (Event, error) {
	ch := make(chan Event, 1)
	unsub := b.Subscribe(pattern, 0, true, filter, func(_ context.Context, ev Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	defer unsub()

	select {
	case ev := <-ch:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// matchTopic reports whether topic satisfies pattern. Patterns support "*"
// (match everything) and a trailing ".*" wildcard segment (e.g. "node.*"
// matches "node.started", "node.completed.retry", but not "nodes.started").
func matchTopic(pattern, topic string) bool {
	if pattern == topic || pattern == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(topic, prefix)
	}
	return false
}
