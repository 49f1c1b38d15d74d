package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"sage/sdk/chat"
)

// Model renders the conversation. It holds no conversation state of its
// own; SetMessages replaces the rendered snapshot wholesale, so the view
// can never drift from the store.
type Model struct {
	viewport  viewport.Model
	messages  []chat.Message
	streaming bool
	width     int
	height    int
	ready     bool
}

// New creates a new chat model.
func New(width, height int) Model {
	vp := viewport.New(width, height)
	vp.SetContent("")
	vp.YPosition = 0

	return Model{
		viewport: vp,
		width:    width,
		height:   height,
		ready:    true,
	}
}

// Init initializes the chat component.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the chat component.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup":
			m.viewport.ViewUp()
		case "pgdown":
			m.viewport.ViewDown()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the chat component.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.viewport.View()
}

// SetMessages replaces the rendered conversation with a fresh snapshot.
// streaming marks the last assistant message as still receiving
// fragments.
func (m *Model) SetMessages(messages []chat.Message, streaming bool) {
	m.messages = messages
	m.streaming = streaming
	m.updateContent()
}

// SetSize updates the chat dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.updateContent()
}

// updateContent rebuilds the viewport content from the snapshot.
func (m *Model) updateContent() {
	var content strings.Builder

	for i, msg := range m.messages {
		isLast := i == len(m.messages)-1
		content.WriteString(renderMessage(msg, m.width, m.streaming && isLast && msg.IsAssistant()))
		if !isLast {
			content.WriteString("\n\n")
		}
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

// Clear drops the rendered conversation.
func (m *Model) Clear() {
	m.messages = nil
	m.streaming = false
	m.viewport.SetContent("")
}

// IsEmpty returns true if there are no messages.
func (m Model) IsEmpty() bool {
	return len(m.messages) == 0
}

// WelcomeText is shown when the conversation is empty.
const WelcomeText = `Welcome to Sage!

Type a question and press Enter to get an answer with sources.

Keys:
• Enter — send
• Esc / Ctrl+C — cancel a streaming answer (again to quit)
• Ctrl+R — regenerate the last answer
• Ctrl+Y / Ctrl+X — rate the last answer
• Ctrl+L — start a new conversation`
