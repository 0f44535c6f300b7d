package tui

import (
	"io"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
)

// compactDelegate reduces per-item height to 1 line to make list dense
type compactDelegate struct{ list.DefaultDelegate }

func (d compactDelegate) Height() int { return 1 }

// remove extra spacing between rows
func (d compactDelegate) Spacing() int { return 0 }

// Render only the label with a simple selected marker.
func (d compactDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	it, ok := listItem.(Option)
	if !ok {
		return
	}
	if index == m.Index() {
		_, _ = io.WriteString(w, d.Styles.SelectedTitle.Render("> "+it.Label))
		return
	}
	_, _ = io.WriteString(w, d.Styles.NormalTitle.Render("  "+it.Label))
}

// NewMenu builds the list model with the cursor on the option whose ID is
// selected, if any.
func NewMenu(options []Option, title, selected string) *menuModel {
	items := make([]list.Item, 0, len(options))
	cursor := 0
	for i, o := range options {
		items = append(items, o)
		if o.ID == selected {
			cursor = i
		}
	}

	delegate := compactDelegate{list.NewDefaultDelegate()}
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff79c6")).Bold(true)
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#8be9fd"))
	delegate.Styles.NormalTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f8f8f2"))
	delegate.Styles.NormalDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))

	height := len(options) + 2
	if height > 14 {
		height = 14
	}
	l := list.New(items, delegate, 48, height)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(len(options) > 12)
	l.Select(cursor)

	return &menuModel{list: l}
}
