package liveu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultAuthURL is the login service of the LiveU Solo portal
	DefaultAuthURL = "https://solo-api.liveu.tv/v0_prod"

	loginReturnTo = `{"return_to":"https://solo.liveu.tv/#/dashboard/units"}`
)

// Credentials identify the LiveU account. They never change while the
// process runs.
type Credentials struct {
	Email    string
	Password string
}

type loginResponse struct {
	Data struct {
		Response struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
		} `json:"response"`
	} `json:"data"`
}

// Session owns the credentials and the current bearer token
type Session struct {
	credentials Credentials
	authURL     string
	userSession string
	httpClient  *http.Client
	logger      Logger

	mu    sync.RWMutex
	token string
}

// Authenticate performs the initial login. Any failure, whether transport,
// status or decode, is reported as ErrInvalidCredentials.
func Authenticate(ctx context.Context, authURL string, credentials Credentials, logger Logger) (*Session, error) {
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	s := &Session{
		credentials: credentials,
		authURL:     strings.TrimRight(authURL, "/"),
		userSession: uuid.New().String(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	token, err := s.login(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.logger.Infof("Successfully logged in to LiveU as %s", credentials.Email)
	return s, nil
}

// Token returns the bearer token currently held
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Reauthenticate logs in again with the original credentials and replaces
// the held token. Concurrent callers may each log in; the last one to
// finish wins.
func (s *Session) Reauthenticate(ctx context.Context) error {
	s.logger.Infof("Re-authenticating with LiveU")

	token, err := s.login(ctx)
	if err != nil {
		s.logger.Warnf("Re-authentication failed: %v", err)
		return err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.logger.Debugf("Re-authentication succeeded")
	return nil
}

func (s *Session) login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL+"/zendesk/userlogin", strings.NewReader(loginReturnTo))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	req.SetBasicAuth(s.credentials.Email, s.credentials.Password)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("x-user-name", s.credentials.Email+s.userSession)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debugf("Login request failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debugf("Login returned status %d", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", ErrInvalidCredentials, resp.StatusCode)
	}

	var res loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		s.logger.Debugf("Failed to decode login response: %v", err)
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if res.Data.Response.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrInvalidCredentials)
	}

	s.logger.Debugf("Received access token valid for %ds", res.Data.Response.ExpiresIn)
	return res.Data.Response.AccessToken, nil
}
