package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"sage/sdk/chat"
)

// streamRecorder captures transport callbacks.
type streamRecorder struct {
	fragments []string
	completed int
	meta      *chat.StreamMetadata
}

func (r *streamRecorder) onFragment(fragment string) {
	r.fragments = append(r.fragments, fragment)
}

func (r *streamRecorder) onComplete(meta *chat.StreamMetadata) {
	r.completed++
	r.meta = meta
}

func (r *streamRecorder) content() string {
	out := ""
	for _, f := range r.fragments {
		out += f
	}
	return out
}

func flushWrite(t *testing.T, w http.ResponseWriter, s string) {
	t.Helper()
	if _, err := w.Write([]byte(s)); err != nil {
		t.Logf("write: %v", err)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func TestStreamAnswerDeliversFragmentsAndMetadata(t *testing.T) {
	var gotReq chat.AskRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/sess_1/ask" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flushWrite(t, w, "data: Hel\n")
		flushWrite(t, w, "data: lo, \n")
		flushWrite(t, w, "data: world\n")
		flushWrite(t, w, "data: [DONE]\n")
		flushWrite(t, w, "data: {\"model_used\":\"x\"}\n")
	}))
	defer server.Close()

	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	req := &chat.AskRequest{SessionID: "sess_1", Message: "hi", AttachmentIDs: []string{"att_1"}}
	if err := client.StreamAnswer(context.Background(), req, rec.onFragment, rec.onComplete); err != nil {
		t.Fatalf("StreamAnswer: %v", err)
	}

	if got := rec.content(); got != "Hello, world" {
		t.Errorf("content: got %q, want %q", got, "Hello, world")
	}
	if rec.completed != 1 || rec.meta == nil || rec.meta.ModelUsed != "x" {
		t.Errorf("completion: completed=%d meta=%+v", rec.completed, rec.meta)
	}
	if gotReq.Message != "hi" || !reflect.DeepEqual(gotReq.AttachmentIDs, []string{"att_1"}) {
		t.Errorf("request body: %+v", gotReq)
	}
}

func TestStreamAnswerRequestRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	err := client.StreamAnswer(context.Background(), &chat.AskRequest{SessionID: "s"}, rec.onFragment, rec.onComplete)
	if !errors.Is(err, chat.ErrRequestRejected) {
		t.Fatalf("error: got %v, want ErrRequestRejected", err)
	}
	if len(rec.fragments) != 0 || rec.completed != 0 {
		t.Errorf("no callbacks expected, got fragments=%v completed=%d", rec.fragments, rec.completed)
	}
}

func TestStreamAnswerUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	err := client.StreamAnswer(context.Background(), &chat.AskRequest{SessionID: "s"}, rec.onFragment, rec.onComplete)
	if !errors.Is(err, chat.ErrStreamUnavailable) {
		t.Fatalf("error: got %v, want ErrStreamUnavailable", err)
	}
	if rec.completed != 0 {
		t.Error("completion must not fire on unavailable stream")
	}
}

func TestStreamAnswerInterruptedKeepsDeliveredFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flushWrite(t, w, "data: one\n")
		flushWrite(t, w, "data: two\n")
		// Drop the connection mid-stream.
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	err := client.StreamAnswer(context.Background(), &chat.AskRequest{SessionID: "s"}, rec.onFragment, rec.onComplete)
	if !errors.Is(err, chat.ErrStreamInterrupted) {
		t.Fatalf("error: got %v, want ErrStreamInterrupted", err)
	}
	if !reflect.DeepEqual(rec.fragments, []string{"one", "two"}) {
		t.Errorf("delivered fragments must stay delivered, got %v", rec.fragments)
	}
	if rec.completed != 0 {
		t.Error("completion must not fire on an interrupted stream")
	}
}

func TestStreamAnswerEOFWithoutSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flushWrite(t, w, "data: partial")
		// Clean close, no sentinel.
	}))
	defer server.Close()

	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	if err := client.StreamAnswer(context.Background(), &chat.AskRequest{SessionID: "s"}, rec.onFragment, rec.onComplete); err != nil {
		t.Fatalf("StreamAnswer: %v", err)
	}
	if got := rec.content(); got != "partial" {
		t.Errorf("content: got %q, want %q", got, "partial")
	}
	if rec.completed != 1 || rec.meta != nil {
		t.Errorf("completed=%d meta=%+v, want 1 and nil", rec.completed, rec.meta)
	}
}

func TestStreamAnswerAbort(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flushWrite(t, w, "data: first\n")
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	err := client.StreamAnswer(ctx, &chat.AskRequest{SessionID: "s"},
		func(fragment string) {
			rec.onFragment(fragment)
			// Leave the conversation mid-stream.
			cancel()
		},
		rec.onComplete)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error: got %v, want context.Canceled", err)
	}
	if rec.completed != 0 {
		t.Error("completion must not fire after abort")
	}
	if !reflect.DeepEqual(rec.fragments, []string{"first"}) {
		t.Errorf("fragments: got %v", rec.fragments)
	}
}

func TestStreamAnswerRuneSplitAcrossReads(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// 世 is E4 B8 96; break it across two writes.
		flushWrite(t, w, "data: \xe4\xb8")
		time.Sleep(10 * time.Millisecond)
		flushWrite(t, w, "\x96\xe7\x95\x8c\ndata: [DONE]\n")
	}))
	defer server.Close()

	client := chat.NewClient(server.URL)
	rec := &streamRecorder{}

	if err := client.StreamAnswer(context.Background(), &chat.AskRequest{SessionID: "s"}, rec.onFragment, rec.onComplete); err != nil {
		t.Fatalf("StreamAnswer: %v", err)
	}
	if got := rec.content(); got != "世界" {
		t.Errorf("content: got %q, want %q", got, "世界")
	}
	if rec.completed != 1 {
		t.Errorf("completed %d times, want 1", rec.completed)
	}
}
