package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Renderer writes the tables for one response shape. Any error makes the
// caller fall back to pass-through JSON.
type Renderer func(doc *markdown, body []byte) error

type markdown struct {
	strings.Builder
}

func (m *markdown) heading(level int, text string) {
	m.WriteString(strings.Repeat("#", level))
	m.WriteString(" ")
	m.WriteString(text)
	m.WriteString("\n\n")
}

func (m *markdown) parameters(params []Param, args Args) {
	m.heading(2, "Parameters")
	for _, p := range params {
		if value, ok := args.String(p.Name); ok {
			fmt.Fprintf(&m.Builder, "- **%s**: %s\n", p.Name, value)
		}
	}
	m.WriteString("\n")
}

func (m *markdown) table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		m.WriteString("_No results._\n\n")
		return
	}

	m.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	m.WriteString("| " + strings.Join(seps, " | ") + " |\n")
	for _, row := range rows {
		m.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	m.WriteString("\n")
}

// isRatioKey reports keys whose values are fractions shown as percentages
func isRatioKey(key string) bool {
	return key == "percent_change" || strings.HasSuffix(key, "_ratio")
}

// formatPercent renders a fraction as a fixed-point percentage
func formatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

// cell renders one value for a table column named key
func cell(key string, v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return escapeCell(val)
	case float64:
		if isRatioKey(key) {
			return formatPercent(val)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return escapeCell(string(encoded))
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return false
	}
	return true
}

// objectKeys returns the keys of a JSON object in document order
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, unexpectedPayload("expected a JSON object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, unexpectedPayload("malformed object key")
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// objectRows turns an array of JSON objects into table rows. Columns are the
// union of scalar-valued keys in first-seen order.
func objectRows(items []json.RawMessage) ([]string, [][]string, error) {
	var columns []string
	seen := make(map[string]bool)
	decoded := make([]map[string]interface{}, 0, len(items))

	for _, item := range items {
		keys, err := objectKeys(item)
		if err != nil {
			return nil, nil, err
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, nil, err
		}
		for _, k := range keys {
			if !seen[k] && isScalar(obj[k]) {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		decoded = append(decoded, obj)
	}

	rows := make([][]string, 0, len(decoded))
	for _, obj := range decoded {
		row := make([]string, len(columns))
		for i, k := range columns {
			if isScalar(obj[k]) {
				row[i] = cell(k, obj[k])
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

// renderList renders an array of flat objects or scalars. Objects carrying an
// "events" array, as the top-events endpoint returns, are unwrapped.
func renderList(scalarColumn string) Renderer {
	return func(doc *markdown, body []byte) error {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			var wrapped struct {
				Events []json.RawMessage `json:"events"`
			}
			if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Events == nil {
				return unexpectedPayload("expected a JSON array")
			}
			items = wrapped.Events
		}

		if len(items) == 0 {
			doc.table(nil, nil)
			return nil
		}

		trimmed := bytes.TrimSpace(items[0])
		if len(trimmed) > 0 && trimmed[0] == '{' {
			columns, rows, err := objectRows(items)
			if err != nil {
				return err
			}
			doc.table(columns, rows)
			return nil
		}

		rows := make([][]string, 0, len(items))
		for _, item := range items {
			var v interface{}
			if err := json.Unmarshal(item, &v); err != nil {
				return err
			}
			if !isScalar(v) {
				return unexpectedPayload("mixed list items")
			}
			rows = append(rows, []string{cell(scalarColumn, v)})
		}
		doc.table([]string{scalarColumn}, rows)
		return nil
	}
}

// renderSeries renders {data:{series:[...], values:{segment:{date:n}}}}
func renderSeries(doc *markdown, body []byte) error {
	var payload struct {
		Data *struct {
			Series []interface{}   `json:"series"`
			Values json.RawMessage `json:"values"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data == nil || payload.Data.Series == nil {
		return unexpectedPayload("expected data.series")
	}

	segments := []string{}
	values := map[string]map[string]interface{}{}
	if len(payload.Data.Values) > 0 && string(payload.Data.Values) != "null" {
		keys, err := objectKeys(payload.Data.Values)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(payload.Data.Values, &values); err != nil {
			return unexpectedPayload("expected data.values to map segments to dates")
		}
		segments = keys
	}

	headers := append([]string{"Date"}, segments...)
	rows := make([][]string, 0, len(payload.Data.Series))
	for _, s := range payload.Data.Series {
		date := fmt.Sprint(s)
		row := []string{escapeCell(date)}
		for _, seg := range segments {
			row = append(row, cell(seg, values[seg][date]))
		}
		rows = append(rows, row)
	}

	for i, h := range headers {
		headers[i] = escapeCell(h)
	}
	doc.table(headers, rows)
	return nil
}

// renderResults renders {results:{date:n}} sorted by date
func renderResults(doc *markdown, body []byte) error {
	var payload struct {
		Results map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Results == nil {
		return unexpectedPayload("expected results")
	}

	dates := make([]string, 0, len(payload.Results))
	for d := range payload.Results {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, []string{escapeCell(d), cell("value", payload.Results[d])})
	}
	doc.table([]string{"Date", "Value"}, rows)
	return nil
}

// renderFunnel renders one step table per date of a funnel report
func renderFunnel(doc *markdown, body []byte) error {
	var payload struct {
		Meta struct {
			Dates []string `json:"dates"`
		} `json:"meta"`
		Data map[string]struct {
			Steps []json.RawMessage `json:"steps"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data == nil {
		return unexpectedPayload("expected meta.dates and data")
	}

	dates := payload.Meta.Dates
	if len(dates) == 0 {
		for d := range payload.Data {
			dates = append(dates, d)
		}
		sort.Strings(dates)
	}

	for _, date := range dates {
		day, ok := payload.Data[date]
		if !ok || day.Steps == nil {
			return unexpectedPayload(fmt.Sprintf("no steps for %s", date))
		}
		columns, rows, err := objectRows(day.Steps)
		if err != nil {
			return err
		}
		for i := range rows {
			rows[i] = append([]string{strconv.Itoa(i + 1)}, rows[i]...)
		}
		doc.heading(2, escapeCell(date))
		doc.table(append([]string{"Step"}, columns...), rows)
	}
	return nil
}

// renderRetention renders {cohortDate:{first:n, counts:[...]}}
func renderRetention(doc *markdown, body []byte) error {
	var cohorts map[string]struct {
		First  interface{}   `json:"first"`
		Counts []interface{} `json:"counts"`
	}
	if err := json.Unmarshal(body, &cohorts); err != nil {
		return unexpectedPayload("expected cohorts keyed by date")
	}

	dates := make([]string, 0, len(cohorts))
	buckets := 0
	for d, c := range cohorts {
		if c.Counts == nil {
			return unexpectedPayload(fmt.Sprintf("cohort %s has no counts", d))
		}
		dates = append(dates, d)
		if len(c.Counts) > buckets {
			buckets = len(c.Counts)
		}
	}
	sort.Strings(dates)

	headers := []string{"Cohort", "first"}
	for i := 0; i < buckets; i++ {
		headers = append(headers, strconv.Itoa(i))
	}

	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		c := cohorts[d]
		row := []string{escapeCell(d), cell("first", c.First)}
		for i := 0; i < buckets; i++ {
			if i < len(c.Counts) {
				row = append(row, cell("count", c.Counts[i]))
			} else {
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}
	doc.table(headers, rows)
	return nil
}
