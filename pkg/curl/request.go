package curl

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Request is the HTTP request a curl command describes.
// Empty headers, cookies and body are left out of the JSON form.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Cookies map[string]string `json:"cookies,omitempty"`
	Body    string            `json:"body,omitempty"`

	// User holds the -u/--user value. It is kept for callers but not applied anywhere.
	User string `json:"-"`
}

// HTTPRequest rebuilds r as an *http.Request ready for an http.Client.
func (r Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	for name, value := range r.Headers {
		req.Header.Set(name, value)
	}

	names := make([]string, 0, len(r.Cookies))
	for name := range r.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: r.Cookies[name]})
	}
	return req, nil
}
