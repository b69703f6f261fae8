package actuation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bahrain-bp/unity-sub000/internal/metrics"
)

// ActuatorError carries the remote status and body of a failed actuator
// call so the caller can surface them for debugging.
type ActuatorError struct {
	StatusCode int
	Body       string
}

func (e *ActuatorError) Error() string {
	return fmt.Sprintf("actuator returned status %d", e.StatusCode)
}

// VoiceMonkeyClient triggers smart plugs through the Voice Monkey API.
// Each (group, state) pair maps to its own virtual device; triggering the
// device is a GET with token and device query parameters.
type VoiceMonkeyClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewVoiceMonkeyClient(baseURL, token string) *VoiceMonkeyClient {
	return &VoiceMonkeyClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// Trigger implements domain.Actuator. The call is bounded by the caller's
// context; the raw response body is returned for auditing on success and
// inside ActuatorError on failure.
func (c *VoiceMonkeyClient) Trigger(ctx context.Context, deviceID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid actuator base URL: %w", err)
	}
	query := u.Query()
	query.Set("token", c.token)
	query.Set("device", deviceID)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build actuator request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ActuatorCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("actuator call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read actuator response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ActuatorError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
