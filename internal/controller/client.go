package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError is an application-level failure reported by the controller
// (success: false with a human-readable message). The message is surfaced
// to the dashboard verbatim.
type APIError struct {
	Op      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Client talks to the printer controller's HTTP API. All calls are direct
// request/response cycles: no retries, no backoff.
type Client struct {
	endpoint    string
	relayPlugin string
	httpc       *http.Client
}

// New creates a controller client for the given base endpoint.
func New(endpoint string, timeout time.Duration, relayPlugin string) *Client {
	return &Client{
		endpoint:    endpoint,
		relayPlugin: relayPlugin,
		httpc:       &http.Client{Timeout: timeout},
	}
}

// envelope is the controller's common response wrapper. Success is a
// pointer because some endpoints (notably /api/status) omit it.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do issues the request and decodes the body into out (if non-nil).
// Application failures become *APIError; transport failures are wrapped.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	// The controller reports failures in the body even on non-200 codes
	// (the relay routes answer 500 with a success:false JSON body).
	var env envelope
	if jsonErr := json.Unmarshal(data, &env); jsonErr == nil {
		if env.Success != nil && !*env.Success {
			msg := env.Error
			if msg == "" {
				msg = env.Message
			}
			return &APIError{Op: path, Message: msg}
		}
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: controller returned %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// command posts to a command endpoint and returns the controller's message.
func (c *Client) command(ctx context.Context, path string, body any) (string, error) {
	var env envelope
	if err := c.post(ctx, path, body, &env); err != nil {
		return "", err
	}
	return env.Message, nil
}

// Status fetches the current printer status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/api/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Connect asks the controller to establish the printer serial link.
func (c *Client) Connect(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/connect", nil)
}

// Disconnect closes the printer serial link.
func (c *Client) Disconnect(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/disconnect", nil)
}

// Pause pauses the current print.
func (c *Client) Pause(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/pause", nil)
}

// Resume resumes a paused print.
func (c *Client) Resume(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/resume", nil)
}

// Stop aborts the current print.
func (c *Client) Stop(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/stop", nil)
}

// HomeZ homes the Z axis.
func (c *Client) HomeZ(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/home_z", nil)
}

// MoveZ moves the Z axis by a relative distance in millimeters.
func (c *Client) MoveZ(ctx context.Context, distance float64) (string, error) {
	return c.command(ctx, "/api/move_z", map[string]float64{"distance": distance})
}

// Reboot reboots the printer board.
func (c *Client) Reboot(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/reboot", nil)
}

// RecoverUSB runs the controller's USB/memory error recovery sequence.
func (c *Client) RecoverUSB(ctx context.Context) (string, error) {
	return c.command(ctx, "/api/recover_usb_error", nil)
}

// SelectFile selects a file on the USB share for printing.
func (c *Client) SelectFile(ctx context.Context, filename string) (string, error) {
	return c.command(ctx, "/api/select_file", map[string]string{"filename": filename})
}

// PrintFile selects a file and starts printing it.
func (c *Client) PrintFile(ctx context.Context, filename string) (string, error) {
	return c.command(ctx, "/api/print_file", map[string]string{"filename": filename})
}
