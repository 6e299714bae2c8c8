package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	// HelpOverlayStyle defines the style for the help overlay container.
	HelpOverlayStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		MarginTop(2)
)

// HelpModel wraps the bubbles help component.
type HelpModel struct {
	help   help.Model
	keymap KeyMap
}

// NewHelpModel creates a new help overlay model.
func NewHelpModel(keymap KeyMap) HelpModel {
	h := help.New()
	h.ShowAll = true

	return HelpModel{
		help:   h,
		keymap: keymap,
	}
}

// View renders the help overlay.
func (m HelpModel) View(width int) string {
	m.help.Width = width - 8 // Account for padding and border
	helpView := lipgloss.JoinVertical(lipgloss.Left,
		m.gesture(m.help.Styles.FullKey, m.help.Styles.FullDesc),
		"",
		m.help.View(m.keymap),
	)
	return HelpOverlayStyle.Render(helpView)
}

// ShortView renders the one-line hint used in the footer.
func (m HelpModel) ShortView(width int) string {
	m.help.ShowAll = false
	prefix := m.gesture(m.help.Styles.ShortKey, m.help.Styles.ShortDesc) +
		m.help.Styles.ShortSeparator.Render(m.help.ShortSeparator)
	rest := width - lipgloss.Width(prefix)
	if rest <= 0 {
		return ansi.Truncate(prefix, width, "…")
	}
	m.help.Width = rest
	return ansi.Truncate(prefix+m.help.View(m.keymap), width, "…")
}

// gesture renders the mouse drag hint. help.Model skips bindings without
// keys, so it is drawn here in the same styles.
func (m HelpModel) gesture(keyStyle, descStyle lipgloss.Style) string {
	h := m.keymap.Drag.Help()
	return keyStyle.Render(h.Key) + " " + descStyle.Render(h.Desc)
}
