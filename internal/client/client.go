package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sonh/qs"

	"romshelf/internal/api"
	"romshelf/internal/services"
)

const (
	endpointHealth     = "/api/healthz"
	endpointPlatforms  = "/api/platforms"
	endpointRoms       = "/api/roms"
	endpointRomByID    = "/api/roms/%d"
	endpointRomsDelete = "/api/roms/delete"
)

// Client is a romshelfd API client.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	encoder *qs.Encoder
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New builds a client for baseURL, which may be a full URL or a host:port
// bind address.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(BaseURL(baseURL))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "client", "new", "invalid server url", err)
	}
	if parsed.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "client", "new", fmt.Sprintf("server url %q has no host", baseURL), nil)
	}
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: 30 * time.Second},
		encoder: qs.NewEncoder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL turns a bind address into a URL. Wildcard hosts are replaced with
// the loopback address.
func BaseURL(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "://") {
		return strings.TrimRight(value, "/")
	}
	host, port, err := net.SplitHostPort(value)
	if err != nil {
		return "http://" + strings.TrimRight(value, "/")
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("romshelfd: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("romshelfd: %s (%d)", e.Message, e.Status)
}

// Unwrap maps the envelope code back to the service sentinel.
func (e *Error) Unwrap() error {
	switch e.Code {
	case "not_found":
		return services.ErrNotFound
	case "already_exists":
		return services.ErrAlreadyExists
	case "invalid_request":
		return services.ErrInvalidRequest
	case "unauthorized":
		return services.ErrUnauthorized
	default:
		return nil
	}
}

// Health checks that the daemon answers.
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, endpointHealth, nil, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("romshelfd reported status %q", resp.Status)
	}
	return nil
}

// Platforms lists platforms with their ROM counts.
func (c *Client) Platforms(ctx context.Context) ([]api.Platform, error) {
	var platforms []api.Platform
	err := c.doRequest(ctx, http.MethodGet, endpointPlatforms, nil, nil, &platforms)
	return platforms, err
}

// ListRoms lists ROMs matching query.
func (c *Client) ListRoms(ctx context.Context, query api.ListRomsQuery) ([]api.Rom, error) {
	var roms []api.Rom
	err := c.doRequest(ctx, http.MethodGet, endpointRoms, query, nil, &roms)
	return roms, err
}

// GetRom fetches the detailed view of one ROM.
func (c *Client) GetRom(ctx context.Context, id int64) (api.DetailedRom, error) {
	var rom api.DetailedRom
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf(endpointRomByID, id), nil, nil, &rom)
	return rom, err
}

// DeleteRoms deletes ROMs; per-id failures are reported in the response.
func (c *Client) DeleteRoms(ctx context.Context, req api.DeleteRequest) (api.DeleteResponse, error) {
	var resp api.DeleteResponse
	err := c.doRequest(ctx, http.MethodPost, endpointRomsDelete, nil, req, &resp)
	return resp, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, query any, body any, out any) error {
	target := c.baseURL.JoinPath(path)
	if query != nil {
		values, err := c.encoder.Values(query)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		target.RawQuery = values.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "client", method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope api.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}
