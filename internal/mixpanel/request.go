package mixpanel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestSpec describes one outbound call. Form is only sent for POST.
type RequestSpec struct {
	Method string
	Path   string     // endpoint suffix, e.g. "/events/top"
	Query  url.Values // encoded into the URL
	Form   url.Values // encoded as application/x-www-form-urlencoded
}

// URL returns the absolute request URL. Query keys are sorted, so the result
// does not depend on the order parameters were added in.
func (c *Client) URL(spec RequestSpec) string {
	u := c.baseURL + "/" + strings.TrimPrefix(spec.Path, "/")
	if len(spec.Query) > 0 {
		u += "?" + spec.Query.Encode()
	}
	return u
}

// NewRequest builds the authenticated *http.Request for spec
func (c *Client) NewRequest(ctx context.Context, spec RequestSpec) (*http.Request, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	var req *http.Request
	var err error
	switch method {
	case http.MethodGet:
		if len(spec.Form) > 0 {
			return nil, fmt.Errorf("form body not allowed on GET %s", spec.Path)
		}
		req, err = http.NewRequestWithContext(ctx, method, c.URL(spec), nil)
	case http.MethodPost:
		req, err = http.NewRequestWithContext(ctx, method, c.URL(spec), strings.NewReader(spec.Form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")
	return req, nil
}
