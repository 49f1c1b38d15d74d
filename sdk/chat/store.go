package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns the visible conversation: the session, the ordered message
// list, and the send/edit/regenerate state machine on top of the
// streaming client. It is the only component that mutates a message's
// content.
//
// User messages are inserted optimistically (Saved=false) before any
// network I/O on the answer endpoint, and reconciled on completion
// (Saved=true) or failure (Failed=true). While an answer streams, the
// assistant placeholder's content is overwritten with the accumulator's
// snapshot after every fragment, so the message list is always derived
// from a single source of truth.
//
// At most one send may be in flight per store; a concurrent attempt gets
// ErrSendInFlight rather than being queued.
type Store struct {
	client   *Client
	logger   *Logger
	onChange func()

	mu       sync.Mutex
	session  *Session
	messages []*Message
	inflight bool
	acc      Accumulator
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithOnChange registers a hook invoked after every visible mutation of
// the session or message list. It runs on the goroutine performing the
// send; UIs typically forward it as an event.
func WithOnChange(fn func()) StoreOption {
	return func(s *Store) {
		s.onChange = fn
	}
}

// WithStoreLogger sets the store's logger. The default logs nothing.
func WithStoreLogger(l *Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a conversation store backed by the given client.
func NewStore(client *Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		logger: &Logger{level: LevelOff},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns a copy of the current session, or nil before the first
// send creates one.
func (s *Store) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	sess := *s.session
	return &sess
}

// Messages returns a snapshot of the conversation in order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}

// Sending reports whether a send is currently in flight.
func (s *Store) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// SendMessage sends a user message and streams the assistant's answer.
// It blocks until the stream completes, fails, or the context is
// cancelled; run it on its own goroutine from an event loop.
//
// Attachments must already be uploaded (Client.UploadAttachment); their
// server ids are passed through in the request.
func (s *Store) SendMessage(ctx context.Context, text string, attachments ...Attachment) error {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.inflight = true
	s.mu.Unlock()

	return s.send(ctx, text, attachments)
}

// send runs one exchange. The caller must already hold the in-flight
// slot; send releases it on every path.
func (s *Store) send(ctx context.Context, text string, attachments []Attachment) error {
	if err := s.ensureSession(ctx); err != nil {
		s.endSend()
		return err
	}

	user, assistant := s.insertExchange(text, attachments)
	return s.stream(ctx, user, assistant)
}

// EditMessage re-sends an edited user message. The edited message and
// everything after it, including the prior assistant reply, are
// discarded; the edit then behaves exactly like a fresh send. The
// in-flight slot is claimed before the truncation and held through the
// resend, so no other send can slip in between the two.
func (s *Store) EditMessage(ctx context.Context, messageID, newText string) error {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	idx := s.indexOf(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	target := s.messages[idx]
	if !target.IsUser() {
		s.mu.Unlock()
		return ErrNotUserMessage
	}
	s.inflight = true
	attachments := target.Attachments
	s.messages = s.messages[:idx]
	s.mu.Unlock()
	s.notify()

	return s.send(ctx, newText, attachments)
}

// RegenerateMessage re-issues the send for the user message preceding the
// given assistant message and streams the replacement into that same
// assistant message. The target carries IsRegenerating for the duration.
func (s *Store) RegenerateMessage(ctx context.Context, assistantID string) error {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	idx := s.indexOf(assistantID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	assistant := s.messages[idx]
	if !assistant.IsAssistant() {
		s.mu.Unlock()
		return ErrNotAssistantMessage
	}
	var user *Message
	for i := idx - 1; i >= 0; i-- {
		if s.messages[i].IsUser() {
			user = s.messages[i]
			break
		}
	}
	if user == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}

	s.inflight = true
	assistant.IsRegenerating = true
	assistant.Failed = false
	assistant.Content = ""
	assistant.Sources = nil
	assistant.ModelUsed = ""
	assistant.TokenCount = 0
	s.acc.Reset()
	s.acc.Start()
	s.mu.Unlock()
	s.notify()

	return s.stream(ctx, user, assistant)
}

// SubmitFeedback records a verdict on a message. On success the local
// message remembers it; on failure local state is untouched and the
// failure is logged. Feedback is best-effort.
func (s *Store) SubmitFeedback(ctx context.Context, messageID string, fb FeedbackType) error {
	if err := s.client.SubmitFeedback(ctx, messageID, fb); err != nil {
		s.logger.Warn("feedback submission failed", "message_id", messageID, "error", err)
		return err
	}

	s.mu.Lock()
	if idx := s.indexOf(messageID); idx >= 0 {
		s.messages[idx].FeedbackType = fb
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// RenameSession renames the current session.
func (s *Store) RenameSession(ctx context.Context, title string) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return ErrMessageNotFound
	}

	updated, err := s.client.RenameSession(ctx, sess.ID, title)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.session = updated
	s.mu.Unlock()
	s.notify()
	return nil
}

// LoadSession switches the store to an existing session and loads its
// history. The accumulator is reset: any previous in-flight scratch state
// must not leak across sessions.
func (s *Store) LoadSession(ctx context.Context, session Session) error {
	history, err := s.client.GetMessages(ctx, session.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.session = &session
	s.messages = make([]*Message, len(history))
	for i := range history {
		m := history[i]
		m.Saved = true
		s.messages[i] = &m
	}
	s.acc.Reset()
	s.mu.Unlock()
	s.notify()
	return nil
}

// Clear drops the session and all messages, ready for a fresh
// conversation.
func (s *Store) Clear() error {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.session = nil
	s.messages = nil
	s.acc.Reset()
	s.mu.Unlock()
	s.notify()
	return nil
}

// ensureSession creates the session on first send. On failure the store
// is left exactly as it was.
func (s *Store) ensureSession(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		return nil
	}

	created, err := s.client.CreateSession(ctx, nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.mu.Lock()
	s.session = created
	s.mu.Unlock()
	s.notify()
	return nil
}

// insertExchange optimistically inserts the user message and the empty
// assistant placeholder, and binds a fresh accumulator. Both are visible
// before any byte reaches the answer endpoint.
func (s *Store) insertExchange(text string, attachments []Attachment) (user, assistant *Message) {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		s.notify()
	}()

	now := time.Now()
	user = &Message{
		ID:          uuid.NewString(),
		SessionID:   s.session.ID,
		Role:        RoleUser,
		Content:     text,
		CreatedAt:   now,
		Attachments: attachments,
	}
	assistant = &Message{
		ID:        uuid.NewString(),
		SessionID: s.session.ID,
		Role:      RoleAssistant,
		CreatedAt: now,
	}
	s.messages = append(s.messages, user, assistant)
	s.acc.Reset()
	s.acc.Start()
	return user, assistant
}

// stream drives one answer stream into the given assistant message and
// reconciles both messages when it ends.
func (s *Store) stream(ctx context.Context, user, assistant *Message) error {
	req := &AskRequest{
		SessionID: user.SessionID,
		Message:   user.Content,
	}
	for _, att := range user.Attachments {
		req.AttachmentIDs = append(req.AttachmentIDs, att.ID)
	}

	err := s.client.StreamAnswer(ctx, req,
		func(fragment string) {
			s.mu.Lock()
			s.acc.AppendFragment(fragment)
			assistant.Content = s.acc.Content()
			s.mu.Unlock()
			s.notify()
		},
		func(meta *StreamMetadata) {
			s.mu.Lock()
			s.acc.Complete(meta)
			assistant.Content = s.acc.Content()
			if meta != nil {
				assistant.Sources = meta.Sources
				assistant.ModelUsed = meta.ModelUsed
				assistant.TokenCount = meta.TokenCount
			}
			assistant.IsRegenerating = false
			assistant.Saved = true
			user.Saved = true
			user.Failed = false
			s.mu.Unlock()
			s.notify()
		})

	s.mu.Lock()
	s.inflight = false
	if err != nil {
		s.acc.Complete(nil)
		assistant.IsRegenerating = false
		if errors.Is(err, context.Canceled) {
			// User walked away mid-stream: keep the partial answer,
			// nothing is marked failed.
			s.logger.Info("send aborted", "session_id", user.SessionID)
		} else {
			// A user message is saved or failed, never both: a
			// regenerate's trigger was already persisted and stays so.
			if !user.Saved {
				user.Failed = true
			}
			assistant.Failed = true
			s.logger.Error("send failed", "session_id", user.SessionID, "error", err)
		}
	}
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *Store) indexOf(messageID string) int {
	for i, m := range s.messages {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}

func (s *Store) endSend() {
	s.mu.Lock()
	s.inflight = false
	s.mu.Unlock()
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
