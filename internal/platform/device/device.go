package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrCaptureFailed = errors.New("fingerprint capture failed")

// Source captures a fingerprint template. An empty employeeID means a kiosk
// capture where the person is not yet known.
type Source interface {
	Capture(ctx context.Context, employeeID string) (string, error)
}

// SimulatedSource produces tagged mock templates for setups without a reader.
type SimulatedSource struct {
	Device string
	Now    func() time.Time
}

func NewSimulatedSource(device string) *SimulatedSource {
	return &SimulatedSource{Device: device, Now: time.Now}
}

func (s *SimulatedSource) Capture(ctx context.Context, employeeID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	device := s.Device
	if device == "" {
		device = "simulated_sensor"
	}
	if employeeID != "" {
		return fmt.Sprintf("%s_fingerprint_employee_%s", device, employeeID), nil
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return fmt.Sprintf("%s_fingerprint_kiosk_%d", device, now().UnixMilli()), nil
}

// HTTPSource asks a reader bridge for a capture: GET {base}/capture?employeeId=
// answering {"template": "<base64>"}.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Capture(ctx context.Context, employeeID string) (string, error) {
	endpoint := s.BaseURL + "/capture"
	if employeeID != "" {
		endpoint += "?employeeId=" + url.QueryEscape(employeeID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: reader returned %d", ErrCaptureFailed, resp.StatusCode)
	}
	var payload struct {
		Template string `json:"template"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if payload.Template == "" {
		return "", ErrCaptureFailed
	}
	return payload.Template, nil
}
