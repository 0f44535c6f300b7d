// Package tui is the terminal side of notifications: the loader spinner,
// alert lines and the selection menu.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned by Select when the user backs out.
var ErrCancelled = errors.New("selection cancelled")

// Option is one selectable entry.
type Option struct {
	ID    string
	Label string
}

func (o Option) Title() string       { return o.Label }
func (o Option) Description() string { return "" }
func (o Option) FilterValue() string { return o.Label }

type menuModel struct {
	list      list.Model
	choice    *Option
	cancelled bool
}

func (m *menuModel) Init() tea.Cmd { return nil }

func (m *menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// explicit handle cursor movement to ensure up/down work with compact delegate
		switch msg.String() {
		case "enter":
			if itm, ok := m.list.SelectedItem().(Option); ok {
				m.choice = &itm
			}
			return m, tea.Quit
		case "esc", "q", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "up", "k":
			m.list.CursorUp()
			return m, nil
		case "down", "j":
			m.list.CursorDown()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width)
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *menuModel) View() string {
	if m.choice != nil {
		return fmt.Sprintf("%s: %s\n", m.list.Title, m.choice.Label)
	}
	if m.cancelled {
		return ""
	}
	return m.list.View()
}

// Select blocks until an option is chosen. The cursor starts on the option
// whose ID is selected.
func Select(title string, options []Option, selected string) (Option, error) {
	if len(options) == 0 {
		return Option{}, fmt.Errorf("%s: nothing to choose from", title)
	}
	m := NewMenu(options, title, selected)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return Option{}, err
	}
	if m.choice == nil {
		return Option{}, ErrCancelled
	}
	return *m.choice, nil
}
