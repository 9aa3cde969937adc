package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// SSEServer implements MCP protocol over Server-Sent Events
type SSEServer struct {
	server *Server

	mu       sync.Mutex
	sessions map[string]*sseSession
}

// sseSession is one open event stream. events is unbuffered so a send only
// completes once the stream loop has taken the message.
type sseSession struct {
	events chan []byte
	done   chan struct{}
}

// NewSSEServer creates a new SSE-based MCP server
func NewSSEServer(server *Server) *SSEServer {
	return &SSEServer{
		server:   server,
		sessions: make(map[string]*sseSession),
	}
}

// Routes registers the SSE endpoints on mux
func (s *SSEServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/sse", s.HandleSSE)
	mux.HandleFunc("/message", s.HandleMessage)
}

// CORS allows browser-based MCP clients to reach the server
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleSSE opens an event stream and announces the session message endpoint
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := uuid.NewString()
	session := &sseSession{events: make(chan []byte), done: make(chan struct{})}
	s.mu.Lock()
	s.sessions[sessionID] = session
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		close(session.done)
	}()

	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%s\n\n", sessionID)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-session.events:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// HandleMessage accepts one JSON-RPC message. With a live sessionId the
// response goes out on that event stream; otherwise it is written inline.
func (s *SSEServer) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var session *sseSession
	if id := r.URL.Query().Get("sessionId"); id != "" {
		s.mu.Lock()
		session = s.sessions[id]
		s.mu.Unlock()
		if session == nil {
			http.Error(w, "Unknown session", http.StatusNotFound)
			return
		}
	}

	resp := s.server.HandleMessage(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if session != nil {
		select {
		case session.events <- data:
			w.WriteHeader(http.StatusAccepted)
		case <-session.done:
			http.Error(w, "Session closed", http.StatusGone)
		case <-r.Context().Done():
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
