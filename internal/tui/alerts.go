package tui

import (
	"github.com/charmbracelet/lipgloss"

	"tims/internal/events"
	"tims/internal/util"
)

type alertKind struct {
	icon  string
	style lipgloss.Style
}

var (
	errorAlert   = alertKind{"✖", lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)}
	successAlert = alertKind{"✔", lipgloss.NewStyle().Foreground(lipgloss.Color("#50fa7b"))}
	warningAlert = alertKind{"!", lipgloss.NewStyle().Foreground(lipgloss.Color("#f1fa8c"))}
	infoAlert    = alertKind{"i", lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd"))}
)

// Alerts prints every error, success, warning and info notification as a
// line on the terminal.
type Alerts struct {
	printer *util.SafePrinter
	subs    []*events.Subscription
}

func NewAlerts(hub *events.Hub, printer *util.SafePrinter) *Alerts {
	a := &Alerts{printer: printer}
	a.subs = []*events.Subscription{
		hub.Error().Subscribe(a.show(errorAlert)),
		hub.Success().Subscribe(a.show(successAlert)),
		hub.Warning().Subscribe(a.show(warningAlert)),
		hub.Info().Subscribe(a.show(infoAlert)),
	}
	return a
}

// Close unsubscribes from the hub.
func (a *Alerts) Close() {
	for _, s := range a.subs {
		s.Unsubscribe()
	}
}

func (a *Alerts) show(kind alertKind) func(string) {
	return func(msg string) {
		if msg == "" {
			return
		}
		a.printer.PrintBlock(kind.style.Render(kind.icon + " " + msg))
	}
}
