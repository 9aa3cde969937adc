package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// WindowRule is a cross-field constraint on the query time window
type WindowRule int

const (
	WindowNone WindowRule = iota
	// WindowIntervalOrDates requires a positive interval, or both from_date
	// and to_date. When both forms are given interval wins and the dates are
	// dropped. A zero or negative interval counts as absent.
	WindowIntervalOrDates
)

// validator checks raw arguments for one tool definition
type validator struct {
	params []Param
	index  map[string]int
	schema *gojsonschema.Schema
	window WindowRule
}

func newValidator(def Definition) (*validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(inputSchema(def.Params)))
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", def.Name, err)
	}

	index := make(map[string]int, len(def.Params))
	for i, p := range def.Params {
		index[p.Name] = i
	}

	return &validator{
		params: def.Params,
		index:  index,
		schema: schema,
		window: def.Window,
	}, nil
}

// validate returns the arguments with defaults applied, or the first
// violation in declared parameter order.
func (v *validator) validate(raw map[string]interface{}, defaultProjectID string) (Args, error) {
	args := make(Args, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok && s == "" {
			continue
		}
		if val != nil {
			args[k] = val
		}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(args)))
	if err != nil {
		return nil, invalidParameter("arguments", err.Error())
	}
	if !result.Valid() {
		return nil, v.firstViolation(result.Errors())
	}

	for _, p := range v.params {
		if args.Has(p.Name) {
			continue
		}
		if p.Required {
			return nil, missingParameter(p.Name)
		}
		switch {
		case p.Name == "project_id" && defaultProjectID != "":
			args[p.Name] = defaultProjectID
		case p.Default != nil:
			args[p.Name] = p.Default
		}
	}

	for _, p := range v.params {
		if err := checkJSONString(p, args); err != nil {
			return nil, err
		}
	}

	if v.window == WindowIntervalOrDates {
		if !args.Positive("interval") {
			delete(args, "interval")
		}
		switch {
		case args.Has("interval"):
			delete(args, "from_date")
			delete(args, "to_date")
		case args.Has("from_date") && args.Has("to_date"):
		default:
			return nil, missingDateRange()
		}
	}

	return args, nil
}

func (v *validator) firstViolation(errs []gojsonschema.ResultError) error {
	type violation struct {
		pos int
		err *Error
	}

	violations := make([]violation, 0, len(errs))
	for _, e := range errs {
		name := e.Field()
		var toolErr *Error
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				name = prop
			}
			toolErr = missingParameter(name)
		} else {
			toolErr = invalidParameter(name, e.Description())
		}

		pos, ok := v.index[name]
		if !ok {
			pos = len(v.params)
		}
		violations = append(violations, violation{pos: pos, err: toolErr})
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].pos < violations[j].pos
	})
	return violations[0].err
}

// checkJSONString validates parameters whose string value carries JSON
func checkJSONString(p Param, args Args) error {
	if p.Kind != KindJSONArray && p.Kind != KindJSONObject {
		return nil
	}
	s, ok := args.String(p.Name)
	if !ok {
		return nil
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return invalidFormat(p.Name, err.Error())
	}

	switch p.Kind {
	case KindJSONArray:
		if _, ok := decoded.([]interface{}); !ok {
			return invalidFormat(p.Name, "must be a JSON array")
		}
	case KindJSONObject:
		if _, ok := decoded.(map[string]interface{}); !ok {
			return invalidFormat(p.Name, "must be a JSON object")
		}
	}
	return nil
}
