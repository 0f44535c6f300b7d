package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Envelope error codes the client knows about.
const (
	CodeNoSession          = 102
	CodeServiceCrashed     = 207
	CodeServiceNoData      = 208
	CodeServiceNoSession   = 209
	CodeRights             = 1000
	CodeDataFields         = 1001
	CodeDBNoRecord         = 1100
	CodeDBDuplicate        = 1101
	CodeInvalidKey         = 2003
	CodeInvalidCredentials = 2100
	CodePasswordStrength   = 2102
	CodeTaskAlreadyStarted = 2103
)

var codeText = map[int]string{
	CodeRights:             "You do not have the rights to do that",
	CodeDataFields:         "Invalid or missing fields",
	CodeDBNoRecord:         "No such record",
	CodeDBDuplicate:        "Record already exists",
	CodeInvalidKey:         "Invalid or expired key",
	CodeInvalidCredentials: "Invalid e-mail address or password",
	CodePasswordStrength:   "Password is not strong enough",
	CodeTaskAlreadyStarted: "Work has already been started",
}

// TransportError is a failure below the envelope: the request never got a
// 2xx answer with a body the client could read.
type TransportError struct {
	Request    Request
	Status     int
	StatusText string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s (%d)", e.Request.Method, e.Request.URL, e.StatusText, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Unauthorized reports an HTTP 401.
func (e *TransportError) Unauthorized() bool { return e.Status == 401 }

// ServiceError is an error carried inside a successfully transported
// envelope.
type ServiceError struct {
	Code    int
	Msg     json.RawMessage
	Handled bool
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("rest: service error %d: %s", e.Code, e.Message())
}

// Message returns a human readable message for the error.
func (e *ServiceError) Message() string {
	if text, ok := codeText[e.Code]; ok {
		return text
	}
	return MsgString(e.Msg)
}

// MsgString renders a raw error msg: strings come back unquoted, anything
// else as compact JSON.
func MsgString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// FieldError is one entry of a DATA_FIELDS error.
type FieldError struct {
	Field  string
	Reason string
}

// FieldErrors is returned to the caller for validation failures so they can
// be attached to the fields that caused them.
type FieldErrors []FieldError

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, fe := range f {
		parts = append(parts, fe.Field+": "+fe.Reason)
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// AsFieldErrors extracts field errors from a validation failure.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	var se *ServiceError
	if !errors.As(err, &se) {
		return nil, false
	}
	switch se.Code {
	case CodeDataFields:
		return parseFieldPairs(se.Msg), true
	case CodePasswordStrength:
		return FieldErrors{{Field: "passwd", Reason: codeText[CodePasswordStrength]}}, true
	}
	return nil, false
}

func parseFieldPairs(raw json.RawMessage) FieldErrors {
	var pairs [][]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return FieldErrors{{Field: "", Reason: MsgString(raw)}}
	}
	out := make(FieldErrors, 0, len(pairs))
	for _, p := range pairs {
		var fe FieldError
		if len(p) > 0 {
			fe.Field = MsgString(p[0])
		}
		if len(p) > 1 {
			fe.Reason = MsgString(p[1])
		}
		out = append(out, fe)
	}
	return out
}
