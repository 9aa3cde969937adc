package mcp

import (
	"encoding/json"
	"net/http"
)

// HTTPServer wraps MCP server with plain REST endpoints
type HTTPServer struct {
	server *Server
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(server *Server) *HTTPServer {
	return &HTTPServer{server: server}
}

// Routes registers the REST endpoints on mux
func (h *HTTPServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/tools", h.handleListTools)
	mux.HandleFunc("/tools/call", h.handleToolCall)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPServer) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": h.server.Tools(),
	})
}

func (h *HTTPServer) handleToolCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var call ToolCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if call.Arguments == nil {
		call.Arguments = map[string]interface{}{}
	}

	result, err := h.server.CallTool(r.Context(), call)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
