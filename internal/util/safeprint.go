package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// SafePrinter serializes writes to the terminal so goroutines (the loader,
// alerts, commands) don't interleave.
type SafePrinter struct {
	mu        sync.Mutex
	w         io.Writer
	suspended bool
	status    bool
	held      []string
}

// Default is the shared SafePrinter used across the application.
var Default = NewSafePrinter(os.Stdout)

func NewSafePrinter(w io.Writer) *SafePrinter {
	return &SafePrinter{w: w}
}

// clearStatus erases a pending status line. Callers hold mu.
func (s *SafePrinter) clearStatus() {
	if s.status {
		fmt.Fprint(s.w, "\r\x1b[K")
		s.status = false
	}
}

func (s *SafePrinter) Print(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.clearStatus()
	fmt.Fprint(s.w, a...)
}

func (s *SafePrinter) Printf(format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.clearStatus()
	fmt.Fprintf(s.w, format, a...)
}

func (s *SafePrinter) Println(a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.clearStatus()
	fmt.Fprintln(s.w, a...)
}

// PrintBlock prints a potentially multi-line block atomically, ending it
// with a newline. Blocks printed while suspended are held until Resume.
func (s *SafePrinter) PrintBlock(block string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		s.held = append(s.held, block)
		return
	}
	s.clearStatus()
	s.writeBlock(block)
}

func (s *SafePrinter) writeBlock(block string) {
	fmt.Fprint(s.w, block)
	if !strings.HasSuffix(block, "\n") {
		fmt.Fprint(s.w, "\n")
	}
}

// Status overwrites the current line with line, leaving the cursor on it.
// The next print erases it first.
func (s *SafePrinter) Status(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	fmt.Fprint(s.w, "\r\x1b[K"+line)
	s.status = true
}

// ClearLine clears the current line and returns the cursor to the beginning.
func (s *SafePrinter) ClearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	fmt.Fprint(s.w, "\r\x1b[K")
	s.status = false
}

// Suspend silences prints until Resume is called, while an interactive
// prompt owns the terminal. Print, Printf, Println and Status output is
// dropped; PrintBlock output is held.
func (s *SafePrinter) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearStatus()
	s.suspended = true
}

// Resume re-enables printing after Suspend and flushes held blocks.
func (s *SafePrinter) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	for _, b := range s.held {
		s.writeBlock(b)
	}
	s.held = nil
}

func (s *SafePrinter) IsSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}
