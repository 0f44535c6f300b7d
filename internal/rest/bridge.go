package rest

import (
	"context"
	"errors"

	"tims/internal/events"
)

// Handlers maps service error codes to caller specific handling. A handler
// returns the error the caller should see, or nil to swallow it.
type Handlers map[int]func(*ServiceError) error

// Bridge settles an error returned by a call the way screens do:
// validation failures come back as FieldErrors, codes with a registered
// handler go to it, and anything else is reported once on the hub.
func Bridge(hub *events.Hub, err error, handlers Handlers) error {
	if err == nil {
		return nil
	}
	if fe, ok := AsFieldErrors(err); ok {
		return fe
	}
	var se *ServiceError
	if errors.As(err, &se) {
		if h, ok := handlers[se.Code]; ok {
			se.Handled = true
			return h(se)
		}
	}
	Report(hub, err)
	return err
}

// Report publishes err on the error topic unless someone already told the
// user about it: transport errors go through the error hook and handled
// envelopes through the success hook. Cancelled calls are not reported.
func Report(hub *events.Hub, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	var te *TransportError
	if errors.As(err, &te) {
		return
	}
	var se *ServiceError
	if errors.As(err, &se) {
		if se.Handled {
			return
		}
		hub.Error().Trigger(se.Message())
		return
	}
	hub.Error().Trigger(err.Error())
}
