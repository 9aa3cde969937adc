package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(handler HandlerFunc) *http.ServeMux {
	s := newTestServer(handler)
	mux := http.NewServeMux()
	NewHTTPServer(s).Routes(mux)
	NewSSEServer(s).Routes(mux)
	return mux
}

func TestHTTPServerRoutes(t *testing.T) {
	ts := httptest.NewServer(newTestMux(echoHandler))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/tools")
	require.NoError(t, err)
	var list struct {
		Tools []Tool `json:"tools"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list.Tools, 1)
	assert.Equal(t, "echo", list.Tools[0].Name)

	resp, err = http.Post(ts.URL+"/tools/call", "application/json", strings.NewReader(`{"name":"echo","arguments":{"text":"ok"}}`))
	require.NoError(t, err)
	var result ToolResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	assert.Equal(t, "ok", result.Content[0].Text)

	resp, err = http.Get(ts.URL + "/tools/call")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHTTPServerHandlerError(t *testing.T) {
	ts := httptest.NewServer(newTestMux(func(ctx context.Context, call ToolCall) (ToolResult, error) {
		return ToolResult{}, errors.New("down")
	}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/tools/call", "application/json", strings.NewReader(`{"name":"echo"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSSEInlineMessage(t *testing.T) {
	ts := httptest.NewServer(newTestMux(echoHandler))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/message", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "1", string(out.ID))
	assert.Nil(t, out.Error)

	notify, err := http.Post(ts.URL+"/message", "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	notify.Body.Close()
	assert.Equal(t, http.StatusAccepted, notify.StatusCode)

	unknown, err := http.Post(ts.URL+"/message?sessionId=nope", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	unknown.Body.Close()
	assert.Equal(t, http.StatusNotFound, unknown.StatusCode)
}

func TestSSESession(t *testing.T) {
	ts := httptest.NewServer(newTestMux(echoHandler))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	reader := bufio.NewReader(stream.Body)
	readEvent := func() (string, string) {
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return event, data
			}
		}
	}

	event, endpoint := readEvent()
	assert.Equal(t, "endpoint", event)
	require.True(t, strings.HasPrefix(endpoint, "/message?sessionId="))

	resp, err := http.Post(ts.URL+endpoint, "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":"x","method":"tools/call","params":{"name":"echo","arguments":{"text":"streamed"}}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	event, data := readEvent()
	assert.Equal(t, "message", event)
	assert.Contains(t, data, `"id":"x"`)
	assert.Contains(t, data, "streamed")
}

func TestSSEClosedSession(t *testing.T) {
	sse := NewSSEServer(newTestServer(echoHandler))
	closed := &sseSession{events: make(chan []byte), done: make(chan struct{})}
	close(closed.done)
	sse.sessions["gone"] = closed

	rec := httptest.NewRecorder()
	sse.HandleMessage(rec, httptest.NewRequest(http.MethodPost, "/message?sessionId=gone",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestCORS(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/tools", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
