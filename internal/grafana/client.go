// Package grafana talks to the Grafana HTTP API: service accounts,
// datasources, folders, dashboards and provisioned alert rules.
package grafana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrConflict reports a 409 from Grafana: the object already exists.
	ErrConflict = errors.New("grafana: already exists")
	// ErrNotFound reports a 404 from Grafana.
	ErrNotFound = errors.New("grafana: not found")
)

// StatusError is a non-2xx Grafana response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: grafana returned %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Is lets errors.Is match ErrConflict and ErrNotFound by status code.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrConflict:
		return e.Code == http.StatusConflict
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// Client is a Grafana API client. Requests carry the bearer Token when one
// is set and basic auth otherwise; service account calls always use basic.
type Client struct {
	BaseURL string
	User    string
	Pass    string
	Token   string
	HTTP    *http.Client
}

// NewClient creates a client for the Grafana server at baseURL.
func NewClient(baseURL, user, pass, token string) *Client {
	return &Client{
		BaseURL: trimSlash(baseURL),
		User:    user,
		Pass:    pass,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type authMode int

const (
	authDefault authMode = iota
	authBasic
)

func (c *Client) setAuth(req *http.Request, mode authMode) {
	if mode != authBasic && c.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
		return
	}
	if c.User != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", c.User, c.Pass)))
		req.Header.Set("Authorization", fmt.Sprintf("Basic %s", creds))
	}
}

// do sends body (nil, json.RawMessage or any JSON-marshalable value) and
// decodes a 2xx response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, mode authMode, out interface{}) error {
	var reader io.Reader
	if body != nil {
		var data []byte
		switch b := body.(type) {
		case json.RawMessage:
			data = b
		default:
			var err error
			data, err = json.Marshal(body)
			if err != nil {
				return fmt.Errorf("marshaling payload: %w", err)
			}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuth(req, mode)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
