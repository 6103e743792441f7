package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SecretHeader carries the shared secret on every request
const SecretHeader = "X-Secret"

// Config defines client behavior
type Config struct {
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 10 * time.Second,
	}
}

// Client talks to a genv server. Requests are not retried.
type Client struct {
	server     string
	secret     string
	httpClient *http.Client
}

// StatusError is returned when the server answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// NewClient creates a client for the server at the base URL server. A
// server without a scheme is reached over http.
func NewClient(server, secret string, cfg Config) (*Client, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in server URL", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server URL %q has no host", server)
	}

	return &Client{
		server:     strings.TrimSuffix(u.String(), "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Get returns the value of the variable name
func (c *Client) Get(ctx context.Context, name string) (string, error) {
	body, err := c.do(ctx, getFragment(name))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Set stores a single variable
func (c *Client) Set(ctx context.Context, name, value string) error {
	return c.SetMany(ctx, map[string]string{name: value})
}

// SetMany stores vars as one batch
func (c *Client) SetMany(ctx context.Context, vars map[string]string) error {
	if len(vars) == 0 {
		return fmt.Errorf("no variables to set")
	}
	query := url.Values{}
	for name, value := range vars {
		query.Set(name, value)
	}
	_, err := c.do(ctx, "set?"+query.Encode())
	return err
}

// All returns every variable on the server
func (c *Client) All(ctx context.Context) (map[string]string, error) {
	body, err := c.do(ctx, "all")
	if err != nil {
		return nil, err
	}

	var vars map[string]string
	if err := json.Unmarshal(body, &vars); err != nil {
		return nil, fmt.Errorf("unable to parse JSON response from server: %w", err)
	}
	if vars == nil {
		vars = map[string]string{}
	}
	return vars, nil
}

// getFragment names plain variables by path segment and falls back to the
// query form for names the path would rewrite
func getFragment(name string) string {
	if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
		return "get?" + url.Values{"name": {name}}.Encode()
	}
	return "get/" + url.PathEscape(name)
}

func (c *Client) do(ctx context.Context, fragment string) ([]byte, error) {
	endpoint := c.server + "/" + fragment
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(SecretHeader, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making HTTP request to %s: %w", c.server, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading HTTP response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			statusErr.Type = envelope.Error.Type
			statusErr.Message = envelope.Error.Message
		}
		return nil, statusErr
	}
	return body, nil
}
