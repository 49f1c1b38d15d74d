package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FeedbackType is a user's verdict on an assistant message.
type FeedbackType string

const (
	FeedbackLike    FeedbackType = "like"
	FeedbackDislike FeedbackType = "dislike"
)

// Session is a server-owned conversation container. The client never
// mutates it structurally; only the title may be renamed.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Source is a citation attached to an assistant message at stream
// completion. Immutable once attached.
type Source struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	SourceName string `json:"source_name"`
	Category   string `json:"category"`
	Excerpt    string `json:"excerpt"`
}

// StreamMetadata is the optional terminal record of an answer stream.
// Every field is optional; a stream may complete with no metadata at all.
type StreamMetadata struct {
	TokenCount int      `json:"token_count,omitempty"`
	ModelUsed  string   `json:"model_used,omitempty"`
	Sources    []Source `json:"sources,omitempty"`
}

// Attachment references a file uploaded ahead of a send. The ID is
// server-assigned by the upload endpoint and passed through unmodified.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
}

// Message is one entry in a conversation. Content is mutable while the
// message is streaming and frozen afterwards; the Store is the only
// component allowed to mutate it.
type Message struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"session_id"`
	Role         Role         `json:"role"`
	Content      string       `json:"content"`
	CreatedAt    time.Time    `json:"created_at"`
	TokenCount   int          `json:"token_count,omitempty"`
	ModelUsed    string       `json:"model_used,omitempty"`
	Sources      []Source     `json:"sources,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	FeedbackType FeedbackType `json:"feedback_type,omitempty"`

	// Client-side lifecycle flags, never sent on the wire.
	Saved          bool `json:"-"`
	Failed         bool `json:"-"`
	IsRegenerating bool `json:"-"`
}

// IsUser returns true if this is a user message.
func (m *Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// CreateSessionRequest is the body for creating a session. A nil title
// lets the server pick one.
type CreateSessionRequest struct {
	Title *string `json:"title,omitempty"`
}

// RenameSessionRequest is the body for renaming a session.
type RenameSessionRequest struct {
	Title string `json:"title"`
}

// AskRequest is the body for the streaming answer endpoint.
type AskRequest struct {
	SessionID     string   `json:"session_id"`
	Message       string   `json:"message"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// FeedbackRequest is the body for the feedback endpoint.
type FeedbackRequest struct {
	FeedbackType FeedbackType `json:"feedback_type"`
}

// UploadResponse is returned by the attachment upload endpoint.
type UploadResponse struct {
	AttachmentID string `json:"attachment_id"`
}

// String returns a pointer to s, for optional request fields.
func String(s string) *string {
	return &s
}
