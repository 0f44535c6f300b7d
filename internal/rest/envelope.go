package rest

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the wrapper every REST call returns.
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
	Warning json.RawMessage `json:"warning,omitempty"`

	// Handled is set by the success hook once it has reported the error, so
	// callers don't report it a second time.
	Handled bool `json:"-"`
}

// ErrorInfo is the error member of an envelope. Msg is left raw since its
// shape depends on the code (a string, a list of field pairs, ...).
type ErrorInfo struct {
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg,omitempty"`
}

// ErrNoData is returned by Decode when the envelope carries no data.
var ErrNoData = errors.New("rest: envelope has no data")

// HasData reports whether the data member is present and not null.
func (e *Envelope) HasData() bool {
	return e != nil && len(e.Data) > 0 && string(e.Data) != "null"
}

// Decode unmarshals the data member into v.
func (e *Envelope) Decode(v any) error {
	if !e.HasData() {
		return ErrNoData
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode envelope data: %w", err)
	}
	return nil
}

// HasWarning reports whether the server attached a warning.
func (e *Envelope) HasWarning() bool {
	return e != nil && len(e.Warning) > 0 && string(e.Warning) != "null"
}

// Err returns the envelope error as a *ServiceError, or nil.
func (e *Envelope) Err() error {
	if e == nil || e.Error == nil {
		return nil
	}
	return &ServiceError{Code: e.Error.Code, Msg: e.Error.Msg, Handled: e.Handled}
}
