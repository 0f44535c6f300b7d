package rest

import (
	"fmt"

	"tims/internal/events"
	"tims/internal/tracker"
)

// Messages published by the notifying hooks.
const (
	MsgSignedOutTransport = "You have been signed out!"
	MsgSignedOut          = "You have been signed out"
)

// Notifier turns request lifecycle and failures into hub notifications and
// tracker transitions.
type Notifier struct {
	Hub     *events.Hub
	Tracker *tracker.Tracker

	// Domain is the name shown in connectivity errors.
	Domain string
}

// Hooks returns the hook set to pass to New.
func (n *Notifier) Hooks() Hooks {
	return Hooks{
		Before:  n.before,
		After:   n.after,
		Error:   n.transportError,
		Success: n.success,
	}
}

func (n *Notifier) before(Request) {
	if n.Tracker != nil {
		n.Tracker.Started()
	}
}

func (n *Notifier) after(Request) {
	if n.Tracker != nil {
		n.Tracker.Finished()
	}
}

func (n *Notifier) transportError(err *TransportError) {
	if err.Unauthorized() {
		n.Hub.Error().Trigger(MsgSignedOutTransport)
		n.Hub.SignedOut().Trigger(events.SignedOutEvent{})
		return
	}
	n.Hub.Error().Trigger(fmt.Sprintf("Unable to connect to %s: %s (%d)", n.Domain, err.StatusText, err.Status))
}

// success reports the envelope errors that are never the caller's business
// and marks them handled.
func (n *Notifier) success(env *Envelope, req Request) {
	if env.Error == nil {
		return
	}

	switch env.Error.Code {
	case CodeNoSession, CodeServiceNoSession:
		n.Hub.Error().Trigger(MsgSignedOut)
		n.Hub.SignedOut().Trigger(events.SignedOutEvent{})
	case CodeServiceCrashed:
		n.Hub.Error().Trigger(fmt.Sprintf("%s crashed. Please see administrator", req.URL))
	case CodeServiceNoData:
		n.Hub.Error().Trigger(fmt.Sprintf("%s requires data to be sent", req.URL))
	default:
		return
	}
	env.Handled = true
	log.Infow("envelope error handled", "id", req.ID, "code", env.Error.Code)
}
