package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"sage/sdk/chat"
)

// Server is a self-contained Sage backend for local development. It
// implements the whole HTTP surface, including the streaming answer
// protocol, with canned responses.
type Server struct {
	port int

	mu       sync.Mutex
	sessions map[string]*chat.Session
	messages map[string][]chat.Message
	nextID   int
}

// NewServer creates a mock server listening on the given port.
func NewServer(port int) *Server {
	return &Server{
		port:     port,
		sessions: make(map[string]*chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

// Start runs the server. It blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("Mock server starting on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.HandleFunc("/sessions/", s.sessionHandler)
	mux.HandleFunc("/messages/", s.messageHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
}

func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req chat.CreateSessionRequest
		json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		s.nextID++
		sess := &chat.Session{
			ID:        fmt.Sprintf("sess_%d", s.nextID),
			Title:     "New conversation",
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if req.Title != nil {
			sess.Title = *req.Title
		}
		s.sessions[sess.ID] = sess
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess)

	case http.MethodGet:
		s.mu.Lock()
		out := make([]chat.Session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			out = append(out, *sess)
		}
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	sessionID := parts[0]

	s.mu.Lock()
	sess := s.sessions[sessionID]
	s.mu.Unlock()
	if sess == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req chat.RenameSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		sess.Title = req.Title
		sess.UpdatedAt = time.Now().UTC()
		updated := *sess
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(updated)
		return
	}

	switch parts[1] {
	case "messages":
		s.mu.Lock()
		history := append([]chat.Message(nil), s.messages[sessionID]...)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(history)

	case "ask":
		s.askHandler(w, r, sessionID)

	case "attachments":
		s.attachmentHandler(w, r)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/feedback") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var req chat.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) attachmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, _, err := r.FormFile("file"); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("att_%d", s.nextID)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chat.UploadResponse{AttachmentID: id})
}

func (s *Server) askHandler(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req chat.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	answer := s.answerFor(req.Message)
	s.streamAnswer(r, w, flusher, answer)

	meta := chat.StreamMetadata{
		TokenCount: len(strings.Fields(answer)),
		ModelUsed:  "sage-mock-1",
		Sources:    mockSources(req.Message),
	}
	sendRecord(w, flusher, "[DONE]")
	metaJSON, _ := json.Marshal(meta)
	sendRecord(w, flusher, string(metaJSON))

	s.recordExchange(sessionID, req.Message, answer, meta)
}

// streamAnswer sends the answer as small prefixed fragments with a short
// delay, for a realistic typing effect.
func (s *Server) streamAnswer(r *http.Request, w http.ResponseWriter, flusher http.Flusher, answer string) {
	const batchSize = 3
	runes := []rune(answer)

	for i := 0; i < len(runes); i += batchSize {
		end := i + batchSize
		if end > len(runes) {
			end = len(runes)
		}
		select {
		case <-r.Context().Done():
			return
		default:
		}
		sendRecord(w, flusher, string(runes[i:end]))
		time.Sleep(15 * time.Millisecond)
	}
}

func sendRecord(w http.ResponseWriter, flusher http.Flusher, payload string) {
	fmt.Fprintf(w, "data: %s\n", payload)
	flusher.Flush()
}

func (s *Server) recordExchange(sessionID, question, answer string, meta chat.StreamMetadata) {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	userID := fmt.Sprintf("msg_%d", s.nextID)
	s.nextID++
	assistantID := fmt.Sprintf("msg_%d", s.nextID)

	s.messages[sessionID] = append(s.messages[sessionID],
		chat.Message{ID: userID, SessionID: sessionID, Role: chat.RoleUser, Content: question, CreatedAt: now},
		chat.Message{
			ID: assistantID, SessionID: sessionID, Role: chat.RoleAssistant,
			Content: answer, CreatedAt: now,
			TokenCount: meta.TokenCount, ModelUsed: meta.ModelUsed, Sources: meta.Sources,
		},
	)
	if sess := s.sessions[sessionID]; sess != nil {
		sess.MessageCount = len(s.messages[sessionID])
		sess.UpdatedAt = now
	}
}

func (s *Server) answerFor(question string) string {
	lower := strings.ToLower(question)

	switch {
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! Ask me anything and I'll answer with sources.\n\nTry asking about **goroutines** or **channels**."
	case strings.Contains(lower, "goroutine"):
		return "A **goroutine** is a lightweight thread managed by the Go runtime.\n\n```go\ngo func() {\n\tfmt.Println(\"concurrent\")\n}()\n```\n\nGoroutines are multiplexed onto OS threads by the scheduler."
	case strings.Contains(lower, "channel"):
		return "A **channel** is a typed conduit for communication between goroutines.\n\n```go\nch := make(chan int, 1)\nch <- 42\nfmt.Println(<-ch)\n```"
	default:
		return "Here is what I found about that.\n\nThis is a canned answer from the mock backend; point the client at a real backend for live answers."
	}
}

func mockSources(question string) []chat.Source {
	lower := strings.ToLower(question)
	if strings.Contains(lower, "goroutine") || strings.Contains(lower, "channel") {
		return []chat.Source{
			{Title: "Effective Go", URL: "https://go.dev/doc/effective_go", SourceName: "go.dev", Category: "docs", Excerpt: "Concurrency primitives in Go."},
			{Title: "Go Memory Model", URL: "https://go.dev/ref/mem", SourceName: "go.dev", Category: "docs", Excerpt: "Happens-before guarantees."},
		}
	}
	return []chat.Source{
		{Title: "Mock knowledge base", URL: "https://example.com/kb", SourceName: "example.com", Category: "internal", Excerpt: "Canned reference entry."},
	}
}
