package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"tims/internal/events"
	"tims/internal/util"
)

var spinners = map[string]spinner.Spinner{
	"line":    spinner.Line,
	"dot":     spinner.Dot,
	"minidot": spinner.MiniDot,
	"points":  spinner.Points,
	"meter":   spinner.Meter,
}

// Loader shows a spinner on the status line for as long as the busy topic
// says requests are pending.
type Loader struct {
	printer *util.SafePrinter
	spin    spinner.Spinner
	style   lipgloss.Style
	label   string
	sub     *events.Subscription

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	visible bool
}

// NewLoader subscribes to busy. Unknown spinner names fall back to dot.
func NewLoader(busy events.Topic[bool], printer *util.SafePrinter, spinnerName, label string) *Loader {
	s, ok := spinners[spinnerName]
	if !ok {
		s = spinner.Dot
	}
	l := &Loader{
		printer: printer,
		spin:    s,
		style:   lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd")),
		label:   label,
	}
	l.sub = busy.Subscribe(l.set)
	return l
}

func (l *Loader) set(busy bool) {
	if busy {
		l.start()
	} else {
		l.halt()
	}
}

// Visible reports whether the spinner is running.
func (l *Loader) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

func (l *Loader) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.visible {
		return
	}
	l.visible = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(l.stop, l.done)
}

func (l *Loader) halt() {
	l.mu.Lock()
	if !l.visible {
		l.mu.Unlock()
		return
	}
	l.visible = false
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()

	close(stop)
	<-done
	l.printer.ClearLine()
}

func (l *Loader) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(l.spin.FPS)
	defer t.Stop()

	for i := 0; ; i++ {
		frame := l.spin.Frames[i%len(l.spin.Frames)]
		l.printer.Status(l.style.Render(frame) + " " + l.label)
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

// Close unsubscribes and stops the spinner.
func (l *Loader) Close() {
	l.sub.Unsubscribe()
	l.halt()
}
