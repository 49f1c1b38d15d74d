package messages

// StoreChangedMsg signals that the conversation store mutated and the
// view should re-render from a fresh snapshot.
type StoreChangedMsg struct{}

// SendDoneMsg signals that a send (or edit/regenerate) finished. Err is
// nil on success; context.Canceled when the user aborted.
type SendDoneMsg struct {
	Err error
}

// SessionResumedMsg signals that a previous session's history finished
// loading into the store.
type SessionResumedMsg struct {
	Err error
}

// FeedbackDoneMsg signals the outcome of a feedback submission.
type FeedbackDoneMsg struct {
	Err error
}
