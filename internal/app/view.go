package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sage/internal/components/chat"
	"sage/internal/styles"
)

// View renders the application.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sections []string

	title := "Sage"
	if sess := m.store.Session(); sess != nil && sess.Title != "" {
		title = "Sage — " + sess.Title
	}
	sections = append(sections, styles.Header.Render(title))

	chatView := m.chat.View()
	if m.chat.IsEmpty() {
		welcomeStyle := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Width(m.width).
			Align(lipgloss.Center).
			Padding(2, 0)
		chatView = welcomeStyle.Render(chat.WelcomeText)
	}
	sections = append(sections, chatView)

	if m.state == StateStreaming {
		disabledInput := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Italic(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Muted).
			Padding(0, 1).
			Width(m.width - 2).
			Render("Answering... (Esc to cancel)")
		sections = append(sections, disabledInput)
	} else {
		sections = append(sections, m.input.View())
	}

	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar renders the status bar at the bottom.
func (m Model) renderStatusBar() string {
	var status string
	var statusStyle lipgloss.Style

	switch m.state {
	case StateIdle:
		status = "Ready"
		statusStyle = styles.StatusBar
	case StateStreaming:
		status = "Answering..."
		statusStyle = styles.StatusBarStreaming
	case StateError:
		status = fmt.Sprintf("Error: %v", m.err)
		statusStyle = styles.StatusBarError
	}

	left := statusStyle.Render(status)
	help := styles.StatusBar.Render("Enter: send • Ctrl+R: regenerate • Ctrl+Y/X: rate • Ctrl+L: new • Ctrl+C: quit")

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(help)
	spacerWidth := m.width - leftWidth - rightWidth - 2
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := strings.Repeat(" ", spacerWidth)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, spacer, help)
}
