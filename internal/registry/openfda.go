// Package registry is a small client for the openFDA drug label endpoint.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a whole label request.
const DefaultTimeout = 10 * time.Second

// Label is one openFDA label document.  Text sections are arrays of strings;
// other fields are kept as-is.
type Label map[string]any

// Section returns the first string of a text section, or "" when the label
// does not carry it.
func (l Label) Section(field string) string {
	vals, ok := l[field].([]any)
	if !ok || len(vals) == 0 {
		return ""
	}
	s, _ := vals[0].(string)
	return s
}

type labelResponse struct {
	Results []Label `json:"results"`
}

// Client queries the label endpoint by brand name.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient constructs a Client.  A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Lookup fetches the first label whose brand name matches brandName exactly.
// It returns nil, nil when the registry has no match; openFDA answers that
// case with a 404 and an error document, which decodes to no results.
func (c *Client) Lookup(ctx context.Context, brandName string) (*Label, error) {
	q := url.Values{
		"search": {`openfda.brand_name:"` + brandName + `"`},
		"limit":  {"1"},
	}
	u := c.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build label request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("label request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read label response: %w", err)
	}

	var out labelResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode label response (status %d): %w", resp.StatusCode, err)
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	return &out.Results[0], nil
}
