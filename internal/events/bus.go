package events

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type subscription struct {
	id      string
	pattern Pattern
	handler Handler
	once    bool

	// removed is set when the subscription leaves the registry; publishes that
	// already hold a snapshot check it before invoking.
	removed atomic.Bool
}

// Bus is a synchronous, in-process event registry. The zero value is not usable;
// create one with NewBus. A Bus is safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	subs []*subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// On registers handler for pattern and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) On(pattern string, handler Handler) func() {
	return b.add(pattern, handler, false)
}

// Once is like On, but the subscription is removed right before its first invocation.
func (b *Bus) Once(pattern string, handler Handler) func() {
	return b.add(pattern, handler, true)
}

// Off removes every subscription whose pattern is exactly eventType and reports how
// many were removed. Wildcard and prefix subscriptions survive unless their pattern
// string is the literal value passed.
func (b *Bus) Off(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.subs[:0:0]
	removed := 0
	for _, s := range b.subs {
		if s.pattern.raw == eventType {
			s.removed.Store(true)
			removed++
			continue
		}
		kept = append(kept, s)
	}
	b.subs = kept
	return removed
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers e to every matching subscription in registration order.
// Handlers run on the caller's goroutine; they may subscribe or unsubscribe
// without affecting the set selected for this publication, except that a
// subscription removed before its turn is skipped.
func (b *Bus) Publish(e Event) {
	t := ParseType(e.Type)

	b.mu.Lock()
	snapshot := make([]*subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		if !s.pattern.Matches(t) {
			continue
		}
		if s.once {
			// The CAS guarantees a single invocation even when publishes race.
			if !s.removed.CompareAndSwap(false, true) {
				continue
			}
			b.remove(s.id)
		} else if s.removed.Load() {
			continue
		}
		b.invoke(s, e)
	}
}

func (b *Bus) add(pattern string, handler Handler, once bool) func() {
	s := &subscription{
		id:      uuid.NewString(),
		pattern: ParsePattern(pattern),
		handler: handler,
		once:    once,
	}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() {
		s.removed.Store(true)
		b.remove(s.id)
	}
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) invoke(s *subscription, e Event) {
	if s.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: events: handler for %q panicked on %s: %v\n%s", s.pattern.raw, e.Type, r, debug.Stack())
		}
	}()
	s.handler(e)
}
