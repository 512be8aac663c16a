// ABOUTME: REST client for the VoIP provider: calls, hangup, SMS
// ABOUTME: Token auth via X-Auth-Token header after an email/password login
package voip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/harperreed/dialdeck/models"
)

const DefaultBaseURL = "https://l7api.com/v1.2/voipstudio"

// Client talks to the VoIP provider's REST API. All failures that reach the
// network are transient from the state machine's point of view.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	token string
}

// NewClient builds a client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientFromEnv builds a client from VOIP_BASE_URL and an existing
// VOIP_API_TOKEN, skipping the login step when a token is present.
func NewClientFromEnv() *Client {
	c := NewClient(os.Getenv("VOIP_BASE_URL"))
	c.token = os.Getenv("VOIP_API_TOKEN")
	return c
}

// Authenticated reports whether the client holds an API token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

type loginResponse struct {
	UserToken string `json:"user_token"`
}

// Login exchanges email/password for an API token used on later requests.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, &resp); err != nil {
		return err
	}
	if resp.UserToken == "" {
		return fmt.Errorf("login succeeded but no token returned")
	}
	c.token = resp.UserToken
	return nil
}

type callResponse struct {
	Data struct {
		ID    json.Number `json:"id"`
		State string      `json:"state"`
	} `json:"data"`
}

// PlaceCall dials number and returns the provider's call id.
func (c *Client) PlaceCall(ctx context.Context, number string) (string, error) {
	if number == "" {
		return "", &models.ValidationError{Field: "phone", Reason: "cannot be empty"}
	}

	body := map[string]string{"to": number}
	var resp callResponse
	if err := c.do(ctx, http.MethodPost, "/calls", body, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID.String(), nil
}

// GetCallStatus returns the provider's state for callID, normalized to the
// models.Call* constants. Unrecognized provider states map to unknown.
func (c *Client) GetCallStatus(ctx context.Context, callID string) (string, error) {
	var resp callResponse
	if err := c.do(ctx, http.MethodGet, "/calls/"+callID, nil, &resp); err != nil {
		return models.CallUnknown, err
	}
	return normalizeState(resp.Data.State), nil
}

// EndCall hangs up callID. Ending an already-ended call is not an error.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	err := c.do(ctx, http.MethodDelete, "/calls/"+callID, nil, nil)
	if err != nil && asStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

// SendSMS sends message to number through the provider.
func (c *Client) SendSMS(ctx context.Context, number, message string) error {
	if number == "" {
		return &models.ValidationError{Field: "phone", Reason: "cannot be empty"}
	}
	if message == "" {
		return &models.ValidationError{Field: "message", Reason: "cannot be empty"}
	}

	body := map[string]string{"to": number, "content": message}
	return c.do(ctx, http.MethodPost, "/sms", body, nil)
}

// statusError carries the HTTP status of a non-2xx API response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, e.Body)
}

func asStatus(err error, code int) bool {
	remote, ok := err.(*models.TransientRemoteError)
	if !ok {
		return false
	}
	st, ok := remote.Err.(*statusError)
	return ok && st.Code == code
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &models.TransientRemoteError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &models.TransientRemoteError{
			Op:  method + " " + path,
			Err: &statusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))},
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func normalizeState(state string) string {
	switch state {
	case "dialing", "calling", "early":
		return models.CallDialing
	case "ringing":
		return models.CallRinging
	case "connected", "confirmed", "answered":
		return models.CallConnected
	case "ended", "terminated", "hangup":
		return models.CallEnded
	default:
		return models.CallUnknown
	}
}
