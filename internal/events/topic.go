package events

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Topic is a handle bound to one named channel of the hub. The zero value is
// not usable; obtain one from Get or the Hub accessors.
type Topic[T any] struct {
	r *registry[T]
}

type registry[T any] struct {
	name   string
	mu     sync.Mutex
	nextID uint64
	subs   []*Subscription // kept in subscription order
	fns    map[uint64]func(T)
}

// Subscription is returned by Subscribe and removes exactly its own
// registration when Unsubscribe is called.
type Subscription struct {
	id      uint64
	removed atomic.Bool
	remove  func(id uint64)
	once    sync.Once
}

// Unsubscribe removes the registration. Calling it more than once, or from
// inside a callback of the same topic, is safe.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.removed.Store(true)
		s.remove(s.id)
	})
}

// Name returns the topic name.
func (t Topic[T]) Name() string {
	return t.r.name
}

// Subscribe registers fn for future triggers. Subscribing the same function
// twice yields two registrations and two invocations per trigger.
func (t Topic[T]) Subscribe(fn func(T)) *Subscription {
	r := t.r
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fns == nil {
		r.fns = make(map[uint64]func(T))
	}
	r.nextID++
	sub := &Subscription{id: r.nextID, remove: r.remove}
	r.subs = append(r.subs, sub)
	r.fns[sub.id] = fn
	return sub
}

func (r *registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			break
		}
	}
	delete(r.fns, id)
}

// Trigger calls every registered callback, in subscription order, with
// payload. The lock is not held during the calls, so callbacks may trigger,
// subscribe or unsubscribe. A panicking callback is logged and skipped; the
// number of such failures is returned.
func (t Topic[T]) Trigger(payload T) int {
	r := t.r

	r.mu.Lock()
	subs := make([]*Subscription, len(r.subs))
	copy(subs, r.subs)
	fns := make([]func(T), len(subs))
	for i, s := range subs {
		fns[i] = r.fns[s.id]
	}
	r.mu.Unlock()

	failed := 0
	for i, s := range subs {
		// removed by an earlier callback of this same trigger
		if s.removed.Load() {
			continue
		}
		if err := call(fns[i], payload); err != nil {
			failed++
			log.Errorw("subscriber failed", "topic", r.name, "subscription", s.id, "err", err)
		}
	}
	return failed
}

// Count returns the number of live subscriptions.
func (t Topic[T]) Count() int {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	return len(t.r.subs)
}

func call[T any](fn func(T), payload T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	fn(payload)
	return nil
}
