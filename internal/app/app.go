package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"sage/internal/components/chat"
	"sage/internal/components/input"
	sdkchat "sage/sdk/chat"
)

// State represents the application state.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateError
)

// SharedState holds state shared between model copies. Bubbletea copies
// the model on every update, so the program pointer used by store
// callbacks lives behind a mutex here.
type SharedState struct {
	mu      sync.Mutex
	program *tea.Program
}

// SetProgram sets the program reference.
func (s *SharedState) SetProgram(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

// GetProgram gets the program reference.
func (s *SharedState) GetProgram() *tea.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// Model is the main application model.
type Model struct {
	chat   chat.Model
	input  input.Model
	store  *sdkchat.Store
	shared *SharedState
	state  State
	width  int
	height int
	err    error
	cancel context.CancelFunc
	ready  bool
}

// New creates a new application model. The store must have been created
// with an OnChange hook that forwards StoreChangedMsg through the
// program (see cmd wiring in main).
func New(store *sdkchat.Store, shared *SharedState) Model {
	return Model{
		chat:   chat.New(80, 20),
		input:  input.New(80),
		store:  store,
		shared: shared,
		state:  StateIdle,
	}
}

// SetProgram sets the tea.Program reference for store callbacks.
func (m *Model) SetProgram(p *tea.Program) {
	m.shared.SetProgram(p)
}

// Init initializes the application.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.input.Init(),
		m.chat.Init(),
	)
}
