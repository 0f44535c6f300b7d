package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"tims/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeReturnsFieldErrors(t *testing.T) {
	hub := events.NewHub()
	var toasts []string
	hub.Error().Subscribe(func(s string) { toasts = append(toasts, s) })

	err := Bridge(hub, &ServiceError{Code: CodeDataFields, Msg: json.RawMessage(`[["email","missing"],["passwd","too short"]]`)}, nil)
	fe, ok := AsFieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{{Field: "email", Reason: "missing"}, {Field: "passwd", Reason: "too short"}}, fe)
	assert.Empty(t, toasts)
}

func TestBridgeUsesRegisteredHandler(t *testing.T) {
	hub := events.NewHub()
	var toasts []string
	hub.Error().Subscribe(func(s string) { toasts = append(toasts, s) })

	errTaken := errors.New("already started")
	err := Bridge(hub, &ServiceError{Code: CodeTaskAlreadyStarted}, Handlers{
		CodeTaskAlreadyStarted: func(*ServiceError) error { return errTaken },
	})
	assert.ErrorIs(t, err, errTaken)
	assert.Empty(t, toasts)

	err = Bridge(hub, &ServiceError{Code: CodeDBDuplicate}, Handlers{
		CodeTaskAlreadyStarted: func(*ServiceError) error { return errTaken },
	})
	require.Error(t, err)
	assert.Equal(t, []string{"Record already exists"}, toasts)
}

func TestReportSkipsHandled(t *testing.T) {
	hub := events.NewHub()
	var toasts []string
	hub.Error().Subscribe(func(s string) { toasts = append(toasts, s) })

	Report(hub, nil)
	Report(hub, &ServiceError{Code: 9999, Msg: json.RawMessage(`"odd failure"`), Handled: true})
	Report(hub, &ServiceError{Code: 9999, Msg: json.RawMessage(`"odd failure"`)})
	Report(hub, errors.New("plain"))

	assert.Equal(t, []string{"odd failure", "plain"}, toasts)
}

func TestPasswordStrengthIsFieldError(t *testing.T) {
	fe, ok := AsFieldErrors(&ServiceError{Code: CodePasswordStrength})
	require.True(t, ok)
	assert.Equal(t, "passwd", fe[0].Field)

	_, ok = AsFieldErrors(errors.New("x"))
	assert.False(t, ok)
}

func TestReportSkipsCancelled(t *testing.T) {
	hub := events.NewHub()
	var toasts []string
	hub.Error().Subscribe(func(s string) { toasts = append(toasts, s) })

	err := Bridge(hub, fmt.Errorf("GET https://x/primary/clients: %w", context.Canceled), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, toasts)
}
