package util

import (
	"sync"

	"golang.org/x/term"
)

var globalMu sync.Mutex
var globalRestore func() error

// SaveTerminal records the state of fd so RestoreGlobal can put it back if
// a prompt is interrupted halfway. It is a no-op when fd is not a terminal.
func SaveTerminal(fd int) error {
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.GetState(fd)
	if err != nil {
		return err
	}
	once := sync.Once{}
	SetGlobalRestore(func() error {
		var rerr error
		once.Do(func() { rerr = term.Restore(fd, state) })
		return rerr
	})
	return nil
}

// SetGlobalRestore sets the global restore function (overwrites previous).
func SetGlobalRestore(restore func() error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalRestore = restore
}

// RestoreGlobal calls the stored global restore (if any) and clears it.
func RestoreGlobal() error {
	globalMu.Lock()
	r := globalRestore
	globalRestore = nil
	globalMu.Unlock()
	if r == nil {
		return nil
	}
	return r()
}

// IsTerminal reports whether fd is a terminal.
func IsTerminal(fd int) bool { return term.IsTerminal(fd) }
