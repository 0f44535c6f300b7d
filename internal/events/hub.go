package events

import (
	"errors"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("tims/events")

// ErrTopicType is returned when a topic name is looked up with a payload type
// different from the one it was created with.
var ErrTopicType = errors.New("events: topic already registered with another payload type")

// ErrTopicNameIsEmpty is returned by Get for an empty topic name.
var ErrTopicNameIsEmpty = errors.New("events: topic name must not be empty")

// Hub is the registry of named topics. Topics are created on first lookup and
// live as long as the hub; only their subscribers come and go.
type Hub struct {
	mu     sync.Mutex
	topics map[string]any // name -> *registry[T]
}

// NewHub creates a hub with the known notification topics registered.
func NewHub() *Hub {
	h := &Hub{topics: make(map[string]any)}
	h.Busy()
	h.Error()
	h.Success()
	h.Warning()
	h.Info()
	h.SignedIn()
	h.SignedOut()
	return h
}

// Get returns the topic handle bound to name, creating the topic if absent.
func Get[T any](h *Hub, name string) (Topic[T], error) {
	if name == "" {
		return Topic[T]{}, ErrTopicNameIsEmpty
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.topics[name]; ok {
		r, ok := existing.(*registry[T])
		if !ok {
			return Topic[T]{}, fmt.Errorf("%w: %s", ErrTopicType, name)
		}
		return Topic[T]{r: r}, nil
	}

	r := &registry[T]{name: name}
	h.topics[name] = r
	log.Debugf("topic %q created", name)
	return Topic[T]{r: r}, nil
}

// must is used for the known topics, whose names and types are fixed here.
func must[T any](h *Hub, name string) Topic[T] {
	t, err := Get[T](h, name)
	if err != nil {
		panic(err)
	}
	return t
}

// Topics returns the names of every topic created so far.
func (h *Hub) Topics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.topics))
	for name := range h.topics {
		names = append(names, name)
	}
	return names
}
