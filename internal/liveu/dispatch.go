package liveu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the LiveU Central REST API
	DefaultAPIURL = "https://lu-central.liveu.tv/luc/luc-core-web/rest/v0"

	applicationID = "SlZ3SHqiqtYJRkF0zO"
)

// Response is a fully read API response
type Response struct {
	StatusCode int
	Body       []byte
}

// Dispatcher sends authenticated requests to the LiveU API
type Dispatcher struct {
	session    *Session
	baseURL    string
	httpClient *http.Client
	logger     Logger
}

// NewDispatcher creates a dispatcher that signs requests with the session token
func NewDispatcher(session *Session, baseURL string, logger Logger) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	return &Dispatcher{
		session: session,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Send issues the request with the current token. On 401 the session is
// re-authenticated once and the request is retried once; a second 401 is
// returned to the caller as is.
func (d *Dispatcher) Send(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := d.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	d.logger.Infof("%s %s returned 401, refreshing token", method, path)
	if err := d.session.Reauthenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	return d.do(ctx, method, path, payload)
}

func (d *Dispatcher) do(ctx context.Context, method, path string, payload []byte) (*Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Authorization", "Bearer "+d.session.Token())
	req.Header.Set("application-id", applicationID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	d.logger.Debugf("%s %s -> %d", method, path, resp.StatusCode)
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
