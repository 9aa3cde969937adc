package tools

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/providentiaww/trilix-mixpanel-mcp/internal/mixpanel"
)

func render(t *testing.T, r Renderer, body string) string {
	t.Helper()
	doc := &markdown{}
	require.NoError(t, r(doc, []byte(body)))
	return doc.String()
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "12.35%", formatPercent(0.12345))
	assert.Equal(t, "-50.00%", formatPercent(-0.5))
	assert.Equal(t, "0.00%", formatPercent(0))

	assert.Equal(t, "25.00%", cell("conversion_ratio", 0.25))
	assert.Equal(t, "0.25", cell("count", 0.25))
	assert.Equal(t, `a \| b`, cell("name", "a | b"))
	assert.Equal(t, "", cell("name", nil))
	assert.Equal(t, `{"a":1}`, cell("meta", map[string]interface{}{"a": 1}))
}

func TestRenderListScalars(t *testing.T) {
	out := render(t, renderList("event"), `["signup","login"]`)
	assert.Equal(t, "| event |\n| --- |\n| signup |\n| login |\n\n", out)

	out = render(t, renderList("event"), `[]`)
	assert.Equal(t, "_No results._\n\n", out)
}

func TestRenderListObjectsKeepKeyOrder(t *testing.T) {
	out := render(t, renderList("cohort"), `[{"name":"Power users","id":7,"meta":{"x":1}},{"id":8,"count":3,"name":"New"}]`)
	assert.Contains(t, out, "| name | id | count |")
	assert.Contains(t, out, "| Power users | 7 |  |")
	assert.Contains(t, out, "| New | 8 | 3 |")
}

func TestRenderListRejectsOtherShapes(t *testing.T) {
	assert.Error(t, renderList("event")(&markdown{}, []byte(`{"error":"nope"}`)))
	assert.Error(t, renderList("event")(&markdown{}, []byte(`["a",{"b":1}]`)))
}

func TestRenderSeries(t *testing.T) {
	out := render(t, renderSeries, `{"data":{"series":["2024-01-01","2024-01-02"],"values":{"login":{"2024-01-01":3,"2024-01-02":4},"signup":{"2024-01-02":1}}},"legend_size":2}`)
	assert.Equal(t, strings.Join([]string{
		"| Date | login | signup |",
		"| --- | --- | --- |",
		"| 2024-01-01 | 3 |  |",
		"| 2024-01-02 | 4 | 1 |",
	}, "\n")+"\n\n", out)

	assert.Error(t, renderSeries(&markdown{}, []byte(`{"results":{}}`)))
}

func TestRenderFunnel(t *testing.T) {
	body := `{"meta":{"dates":["2024-01-01"]},"data":{"2024-01-01":{"steps":[
		{"event":"view","count":100,"step_conv_ratio":1,"overall_conv_ratio":1},
		{"event":"buy","count":25,"step_conv_ratio":0.25,"overall_conv_ratio":0.25}
	],"analysis":{}}}}`
	out := render(t, renderFunnel, body)
	assert.Contains(t, out, "## 2024-01-01")
	assert.Contains(t, out, "| Step | event | count | step_conv_ratio | overall_conv_ratio |")
	assert.Contains(t, out, "| 1 | view | 100 | 100.00% | 100.00% |")
	assert.Contains(t, out, "| 2 | buy | 25 | 25.00% | 25.00% |")

	assert.Error(t, renderFunnel(&markdown{}, []byte(`{"meta":{"dates":["2024-01-02"]},"data":{}}`)))
}

func TestRenderRetention(t *testing.T) {
	out := render(t, renderRetention, `{"2024-01-02":{"first":5,"counts":[5]},"2024-01-01":{"first":10,"counts":[10,4]}}`)
	assert.Equal(t, strings.Join([]string{
		"| Cohort | first | 0 | 1 |",
		"| --- | --- | --- | --- |",
		"| 2024-01-01 | 10 | 10 | 4 |",
		"| 2024-01-02 | 5 | 5 |  |",
	}, "\n")+"\n\n", out)

	assert.Error(t, renderRetention(&markdown{}, []byte(`{"2024-01-01":{"first":1}}`)))
}

type stubCaller struct {
	body []byte
	err  error
	spec mixpanel.RequestSpec
}

func (s *stubCaller) Do(ctx context.Context, spec mixpanel.RequestSpec) ([]byte, error) {
	s.spec = spec
	return s.body, s.err
}

func findTool(t *testing.T, name string) EndpointTool {
	t.Helper()
	for _, tool := range MixpanelTools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return EndpointTool{}
}

func TestRendererFallbackToPassThrough(t *testing.T) {
	caller := &stubCaller{body: []byte(`{"computed_at":"2024-01-01","results":"not a map"}`)}
	def := findTool(t, "query_segmentation_average").Definition(caller)

	out, err := def.Handler(context.Background(), Args{"event": "e", "on": "x", "from_date": "a", "to_date": "b"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"computed_at\": \"2024-01-01\",\n  \"results\": \"not a map\"\n}", out)
}

func TestPassThroughKeepsKeyOrder(t *testing.T) {
	caller := &stubCaller{body: []byte(`{"z":1,"a":{"y":2,"b":3}}`)}
	def := findTool(t, "query_insights_report").Definition(caller)

	out, err := def.Handler(context.Background(), Args{"bookmark_id": "12", "project_id": "1"})
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, `"z"`), strings.Index(out, `"a"`))
	assert.Less(t, strings.Index(out, `"y"`), strings.Index(out, `"b"`))
	assert.Equal(t, http.MethodGet, caller.spec.Method)
	assert.Equal(t, "/insights", caller.spec.Path)
	assert.Nil(t, caller.spec.Form)
}

func TestNonJSONBody(t *testing.T) {
	seg := findTool(t, "query_segmentation_report")

	out, err := seg.Definition(&stubCaller{body: []byte("date,count\n2024-01-01,3\n")}).
		Handler(context.Background(), Args{"event": "e", "from_date": "a", "to_date": "b", "format": "csv"})
	require.NoError(t, err)
	assert.Equal(t, "date,count\n2024-01-01,3\n", out)

	_, err = seg.Definition(&stubCaller{body: []byte("<html>")}).
		Handler(context.Background(), Args{"event": "e", "from_date": "a", "to_date": "b"})
	var toolErr *Error
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, ErrCodeUnexpectedPayload, toolErr.Code)
}

func TestCallerErrorPropagates(t *testing.T) {
	upstreamErr := &mixpanel.HTTPError{StatusCode: 400, Body: "bad where"}
	_, err := findTool(t, "list_saved_funnels").Definition(&stubCaller{err: upstreamErr}).
		Handler(context.Background(), Args{})

	var httpErr *mixpanel.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.StatusCode)
}

func TestRequestSpecOrderIndependent(t *testing.T) {
	tool := findTool(t, "query_segmentation_bucket")
	a := tool.RequestSpec(Args{"event": "e", "on": "o", "from_date": "f", "to_date": "t", "type": "unique", "unit": "day", "where": "w"})
	b := tool.RequestSpec(Args{"where": "w", "unit": "day", "type": "unique", "to_date": "t", "from_date": "f", "on": "o", "event": "e"})
	assert.Equal(t, a.Query.Encode(), b.Query.Encode())
	assert.Equal(t, "event=e&from_date=f&on=o&to_date=t&type=unique&unit=day&where=w", a.Query.Encode())
}
