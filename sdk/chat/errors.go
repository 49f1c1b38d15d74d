package chat

import "errors"

// Failure classes for a streamed answer request. StreamAnswer wraps one of
// these in the error it returns, so callers can classify with errors.Is.
var (
	// ErrRequestRejected means the server answered with a non-success
	// status before any streaming began. No callbacks were delivered.
	ErrRequestRejected = errors.New("request rejected")

	// ErrStreamUnavailable means the response body could not be read at
	// all. No callbacks were delivered.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrStreamInterrupted means the connection failed mid-stream.
	// Fragments delivered before the failure stay delivered; the
	// completion callback is never invoked.
	ErrStreamInterrupted = errors.New("stream interrupted")
)

// Store operation errors.
var (
	// ErrSendInFlight is returned when a send is attempted while another
	// send on the same session is still streaming.
	ErrSendInFlight = errors.New("a send is already in flight for this session")

	// ErrMessageNotFound is returned when the target message id is not in
	// the conversation.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotUserMessage is returned when an edit targets a message that is
	// not a user message.
	ErrNotUserMessage = errors.New("not a user message")

	// ErrNotAssistantMessage is returned when a regenerate targets a
	// message that is not an assistant message.
	ErrNotAssistantMessage = errors.New("not an assistant message")
)
