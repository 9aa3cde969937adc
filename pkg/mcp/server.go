package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// DefaultProtocolVersion is answered when the client does not name one
const DefaultProtocolVersion = "2024-11-05"

// maxMessageSize bounds a single newline-delimited stdio message
const maxMessageSize = 10 * 1024 * 1024

// HandlerFunc executes a tool call
type HandlerFunc func(ctx context.Context, call ToolCall) (ToolResult, error)

// Server dispatches MCP JSON-RPC messages to a tool handler
type Server struct {
	name    string
	version string
	logger  *log.Logger

	mu      sync.RWMutex
	tools   []Tool
	handler HandlerFunc

	inflightMu sync.Mutex
	inflight   map[string]*inflightCall
}

type inflightCall struct {
	cancel context.CancelFunc
}

// NewServer creates a new MCP server
func NewServer(name, version string) *Server {
	return &Server{
		name:     name,
		version:  version,
		logger:   log.New(os.Stderr, "[mcp] ", log.LstdFlags),
		inflight: make(map[string]*inflightCall),
	}
}

// SetLogger replaces the server logger
func (s *Server) SetLogger(logger *log.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// RegisterTool adds a tool to the tools/list answer
func (s *Server) RegisterTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, tool)
}

// Tools returns the registered tool descriptors
func (s *Server) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// SetHandler sets the tool call handler
func (s *Server) SetHandler(handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// CallTool runs a tool call through the configured handler
func (s *Server) CallTool(ctx context.Context, call ToolCall) (ToolResult, error) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		return ToolResult{}, fmt.Errorf("no tool handler configured")
	}
	return handler(ctx, call)
}

// Start serves MCP over stdin/stdout until stdin closes or ctx is done
func (s *Server) Start(ctx context.Context, handler HandlerFunc) error {
	s.SetHandler(handler)
	s.logger.Printf("MCP stdio server %s %s ready with %d tools", s.name, s.version, len(s.Tools()))
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads newline-delimited JSON-RPC messages from r and writes responses
// to w. tools/call requests run concurrently; everything else is answered in
// order. Serve returns after input ends and in-flight calls have finished.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeMu sync.Mutex
	write := func(resp *Response) {
		if resp == nil {
			return
		}
		data, err := json.Marshal(resp)
		if err != nil {
			s.logger.Printf("failed to encode response: %v", err)
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := w.Write(append(data, '\n')); err != nil {
			s.logger.Printf("failed to write response: %v", err)
		}
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}

			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				write(errorResponse(nil, CodeParseError, fmt.Sprintf("Parse error: %v", err)))
				continue
			}

			if req.Method == "tools/call" && !req.IsNotification() {
				callCtx, release := s.track(ctx, req.ID)
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer release()
					write(s.handleToolCall(callCtx, req))
				}()
				continue
			}
			write(s.Dispatch(ctx, req))
		}
	}
}

// HandleMessage dispatches one raw JSON-RPC message. It returns nil for
// notifications.
func (s *Server) HandleMessage(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, CodeParseError, fmt.Sprintf("Parse error: %v", err))
	}
	return s.Dispatch(ctx, req)
}

// Dispatch answers one request. It returns nil for notifications.
func (s *Server) Dispatch(ctx context.Context, req Request) *Response {
	if req.IsNotification() {
		s.handleNotification(req)
		return nil
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, s.handleInitialize(req.Params))
	case "ping":
		return resultResponse(req.ID, map[string]interface{}{})
	case "tools/list":
		return resultResponse(req.ID, map[string]interface{}{"tools": s.Tools()})
	case "tools/call":
		ctx, release := s.track(ctx, req.ID)
		defer release()
		return s.handleToolCall(ctx, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(params json.RawMessage) map[string]interface{} {
	version := DefaultProtocolVersion
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(params) > 0 && json.Unmarshal(params, &p) == nil && p.ProtocolVersion != "" {
		version = p.ProtocolVersion
	}

	return map[string]interface{}{
		"protocolVersion": version,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.name,
			"version": s.version,
		},
	}
}

func (s *Server) handleToolCall(ctx context.Context, req Request) *Response {
	var call ToolCall
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &call) != nil || call.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "Invalid params")
	}
	if call.Arguments == nil {
		call.Arguments = map[string]interface{}{}
	}

	result, err := s.CallTool(ctx, call)
	if err != nil {
		return errorResponse(req.ID, CodeServerError, err.Error())
	}
	return resultResponse(req.ID, result)
}

// track registers a cancellable context for request id. release must be
// called once the call has been answered.
func (s *Server) track(ctx context.Context, id json.RawMessage) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	key := string(id)
	call := &inflightCall{cancel: cancel}

	s.inflightMu.Lock()
	s.inflight[key] = call
	s.inflightMu.Unlock()

	return ctx, func() {
		s.inflightMu.Lock()
		if s.inflight[key] == call {
			delete(s.inflight, key)
		}
		s.inflightMu.Unlock()
		cancel()
	}
}

func (s *Server) handleNotification(req Request) {
	switch req.Method {
	case "notifications/cancelled":
		var p struct {
			RequestID json.RawMessage `json:"requestId"`
			Reason    string          `json:"reason"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || len(p.RequestID) == 0 {
			return
		}
		s.inflightMu.Lock()
		call, ok := s.inflight[string(p.RequestID)]
		s.inflightMu.Unlock()
		if ok {
			s.logger.Printf("cancelling request %s: %s", string(p.RequestID), p.Reason)
			call.cancel()
		}
	}
}

func resultResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}
