// Package tracker counts in-flight requests and publishes the busy state
// (count > 0) on an events topic whenever it flips.
package tracker

import (
	"sync"

	"tims/internal/events"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("tims/tracker")

// Tracker is the pending request counter. One instance is created by the
// composition root and shared by everything that issues requests.
type Tracker struct {
	topic events.Topic[bool]

	mu        sync.Mutex
	count     int
	published bool

	// serializes publication so true/false reach subscribers in order
	pub sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInitial starts the counter at n instead of 0. A tracker created with
// n > 0 is busy from the start and publishes false once the count drains.
func WithInitial(n int) Option {
	return func(t *Tracker) {
		if n < 0 {
			n = 0
		}
		t.count = n
		t.published = n > 0
	}
}

// New returns an idle tracker publishing on topic.
func New(topic events.Topic[bool], opts ...Option) *Tracker {
	t := &Tracker{topic: topic}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Started records a request going out. The first one publishes true.
func (t *Tracker) Started() {
	t.mu.Lock()
	t.count++
	t.mu.Unlock()
	t.settle()
}

// Finished records a request settling. The count never goes below zero, and
// an unpaired call with nothing pending publishes nothing.
func (t *Tracker) Finished() {
	t.mu.Lock()
	if t.count == 0 {
		t.mu.Unlock()
		log.Debug("finished called with no pending requests")
		return
	}
	t.count--
	t.mu.Unlock()
	t.settle()
}

// Count returns the number of pending requests.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Busy reports whether anything is in flight.
func (t *Tracker) Busy() bool {
	return t.Count() > 0
}

// settle publishes until the last published state matches the counter.
// Busy subscribers must not call Started or Finished synchronously.
func (t *Tracker) settle() {
	t.pub.Lock()
	defer t.pub.Unlock()

	for {
		t.mu.Lock()
		busy := t.count > 0
		if busy == t.published {
			t.mu.Unlock()
			return
		}
		t.published = busy
		t.mu.Unlock()

		t.topic.Trigger(busy)
	}
}
