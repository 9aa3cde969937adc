package tools

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/providentiaww/trilix-mixpanel-mcp/pkg/mcp"
)

// Handler runs one tool invocation against validated arguments
type Handler func(ctx context.Context, args Args) (string, error)

// Definition declares one tool: its parameters and the handler behind it
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Window      WindowRule
	Handler     Handler
}

type entry struct {
	def       Definition
	validator *validator
}

// Registry maps tool names to definitions. It is filled once at startup and
// only read afterwards.
type Registry struct {
	mu               sync.RWMutex
	entries          map[string]*entry
	order            []string
	defaultProjectID string
	logger           *log.Logger
}

// NewRegistry creates an empty registry. defaultProjectID is substituted for
// an omitted project_id argument.
func NewRegistry(defaultProjectID string) *Registry {
	return &Registry{
		entries:          make(map[string]*entry),
		defaultProjectID: defaultProjectID,
		logger:           log.New(os.Stderr, "[tools] ", log.LstdFlags),
	}
}

// SetLogger replaces the invocation logger
func (r *Registry) SetLogger(logger *log.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Register adds a tool. A duplicate name replaces the earlier definition.
func (r *Registry) Register(def Definition) error {
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}
	v, err := newValidator(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.entries[def.Name] = &entry{def: def, validator: v}
	return nil
}

// Tools returns MCP descriptors in registration order
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		def := r.entries[name].def
		tools = append(tools, mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def.Params),
		})
	}
	return tools
}

// Invoke validates raw arguments and runs the named tool. Every failure,
// including a panicking handler, comes back as an error result.
func (r *Registry) Invoke(ctx context.Context, name string, raw map[string]interface{}) (result mcp.ToolResult) {
	requestID := uuid.New().String()
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			result = errorResult(fmt.Errorf("internal error: %v", p))
		}
		status := "ok"
		if result.IsError {
			status = "error"
		}
		r.logger.Printf("tool=%s request_id=%s status=%s duration=%s", name, requestID, status, time.Since(start).Round(time.Millisecond))
	}()

	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return errorResult(unknownTool(name))
	}

	args, err := e.validator.validate(raw, r.defaultProjectID)
	if err != nil {
		return errorResult(err)
	}

	text, err := e.def.Handler(ctx, args)
	if err != nil {
		r.logger.Printf("tool=%s request_id=%s error=%q", name, requestID, err.Error())
		return errorResult(err)
	}
	return mcp.TextResult(text)
}

// HandleTool adapts Invoke to the MCP server handler signature. Tool failures
// are reported in the result, never as a Go error.
func (r *Registry) HandleTool(ctx context.Context, call mcp.ToolCall) (mcp.ToolResult, error) {
	return r.Invoke(ctx, call.Name, call.Arguments), nil
}

func errorResult(err error) mcp.ToolResult {
	return mcp.ErrorResult(fmt.Sprintf("Error: %v", err))
}
