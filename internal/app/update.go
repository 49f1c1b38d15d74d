package app

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"sage/internal/messages"
	sdkchat "sage/sdk/chat"
)

// Update handles all application messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		// Reserve space for header, input, and status bar.
		chatHeight := msg.Height - 9
		if chatHeight < 5 {
			chatHeight = 5
		}
		m.chat.SetSize(msg.Width, chatHeight)
		m.input.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.state == StateStreaming && m.cancel != nil {
				m.cancel()
				m.cancel = nil
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			if m.state != StateStreaming && strings.TrimSpace(m.input.Value()) != "" {
				return m.sendMessage()
			}

		case "ctrl+r":
			if m.state != StateStreaming {
				return m.regenerateLast()
			}

		case "ctrl+l":
			if m.state != StateStreaming {
				if err := m.store.Clear(); err == nil {
					m.chat.Clear()
					m.state = StateIdle
					m.err = nil
				}
				return m, nil
			}

		case "ctrl+y":
			if m.state != StateStreaming {
				return m.feedbackLast(sdkchat.FeedbackLike)
			}

		case "ctrl+x":
			if m.state != StateStreaming {
				return m.feedbackLast(sdkchat.FeedbackDislike)
			}
		}

	case messages.StoreChangedMsg:
		m.syncFromStore()
		return m, nil

	case messages.SendDoneMsg:
		m.cancel = nil
		switch {
		case msg.Err == nil, errors.Is(msg.Err, context.Canceled):
			m.state = StateIdle
			m.err = nil
		default:
			m.state = StateError
			m.err = msg.Err
		}
		m.syncFromStore()
		return m, m.input.Focus()

	case messages.SessionResumedMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		}
		m.syncFromStore()
		return m, nil

	case messages.FeedbackDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		}
		m.syncFromStore()
		return m, nil
	}

	// The input only reacts while no answer is streaming.
	if m.state != StateStreaming {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Scrolling works in every state.
	var cmd tea.Cmd
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// syncFromStore re-renders the chat from a fresh store snapshot.
func (m *Model) syncFromStore() {
	m.chat.SetMessages(m.store.Messages(), m.store.Sending())
}

// sendMessage sends the current input through the store.
func (m Model) sendMessage() (tea.Model, tea.Cmd) {
	content := m.input.Value()
	m.input.Clear()
	m.input.Blur()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = StateStreaming
	m.err = nil

	store := m.store
	return m, func() tea.Msg {
		return messages.SendDoneMsg{Err: store.SendMessage(ctx, content)}
	}
}

// feedbackLast submits a verdict on the most recent assistant message.
func (m Model) feedbackLast(fb sdkchat.FeedbackType) (tea.Model, tea.Cmd) {
	msgs := m.store.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsAssistant() && msgs[i].Saved {
			store := m.store
			id := msgs[i].ID
			return m, func() tea.Msg {
				return messages.FeedbackDoneMsg{Err: store.SubmitFeedback(context.Background(), id, fb)}
			}
		}
	}
	return m, nil
}

// regenerateLast re-runs the send for the most recent assistant message.
func (m Model) regenerateLast() (tea.Model, tea.Cmd) {
	msgs := m.store.Messages()
	var target *sdkchat.Message
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsAssistant() {
			target = &msgs[i]
			break
		}
	}
	if target == nil {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = StateStreaming
	m.err = nil

	store := m.store
	id := target.ID
	return m, func() tea.Msg {
		return messages.SendDoneMsg{Err: store.RegenerateMessage(ctx, id)}
	}
}
