package events

import "github.com/asaskevich/EventBus"

// GlobalBus carries application lifecycle events between components and main.
// User-facing notifications go through a Hub instead.
var GlobalBus EventBus.Bus

func init() {
	GlobalBus = EventBus.New()
}

const (
	// EventShutdownRequested is published with a reason string.
	EventShutdownRequested = "app:shutdown:requested"
	EventShutdownComplete  = "app:shutdown:complete"

	// EventSessionCompleted is published when a command finished its REST work.
	EventSessionCompleted = "session:completed"
)
