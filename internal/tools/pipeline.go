package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/providentiaww/trilix-mixpanel-mcp/internal/mixpanel"
)

// Caller performs one upstream request and returns the 2xx body
type Caller interface {
	Do(ctx context.Context, spec mixpanel.RequestSpec) ([]byte, error)
}

// Endpoint binds a tool to one upstream REST endpoint
type Endpoint struct {
	Method string
	Path   string
	Title  string   // heading of the rendered report
	Render Renderer // nil means pass-through JSON
	// CSV lets a format=csv argument return the body verbatim
	CSV bool
}

// EndpointTool is the table record behind every Mixpanel tool
type EndpointTool struct {
	Name        string
	Description string
	Params      []Param
	Window      WindowRule
	Endpoint    Endpoint
}

// Definition turns the record into a registrable tool backed by caller
func (t EndpointTool) Definition(caller Caller) Definition {
	return Definition{
		Name:        t.Name,
		Description: t.Description,
		Params:      t.Params,
		Window:      t.Window,
		Handler: func(ctx context.Context, args Args) (string, error) {
			body, err := caller.Do(ctx, t.RequestSpec(args))
			if err != nil {
				return "", err
			}
			return t.format(args, body)
		},
	}
}

// scoping parameters stay in the query string of POST endpoints
var queryOnPost = map[string]bool{
	"project_id":   true,
	"workspace_id": true,
}

// RequestSpec serializes the present arguments in declared order
func (t EndpointTool) RequestSpec(args Args) mixpanel.RequestSpec {
	method := t.Endpoint.Method
	if method == "" {
		method = http.MethodGet
	}

	spec := mixpanel.RequestSpec{
		Method: method,
		Path:   t.Endpoint.Path,
		Query:  url.Values{},
	}
	if method == http.MethodPost {
		spec.Form = url.Values{}
	}

	for _, p := range t.Params {
		value, ok := args.String(p.Name)
		if !ok {
			continue
		}
		if method == http.MethodPost && !queryOnPost[p.Name] {
			spec.Form.Set(p.WireName(), value)
			continue
		}
		spec.Query.Set(p.WireName(), value)
	}
	return spec
}

func (t EndpointTool) format(args Args, body []byte) (string, error) {
	if !json.Valid(body) {
		if format, _ := args.String("format"); t.Endpoint.CSV && format == "csv" {
			return string(body), nil
		}
		return "", unexpectedPayload("response is not valid JSON")
	}

	if t.Endpoint.Render == nil {
		return passThrough(body), nil
	}

	doc := &markdown{}
	doc.heading(1, t.Endpoint.Title)
	doc.parameters(t.Params, args)
	if err := t.Endpoint.Render(doc, body); err != nil {
		return passThrough(body), nil
	}
	return doc.String(), nil
}

// passThrough re-indents the body, keeping the upstream key order
func passThrough(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
