package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// ConfigEdit is one section/key/value assignment for the controller config.
type ConfigEdit struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Value   any    `json:"value"`
}

// BulkResult is the per-edit outcome of a bulk config write.
type BulkResult struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Success bool   `json:"success"`
}

// AppConfig fetches the controller's application config. An empty section
// returns the whole config keyed by section.
func (c *Client) AppConfig(ctx context.Context, section string) (map[string]any, error) {
	path := "/api/config/app"
	if section != "" {
		path += "?section=" + url.QueryEscape(section)
	}
	var resp struct {
		Config map[string]any `json:"config"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

// SetAppConfig writes a single config value.
func (c *Client) SetAppConfig(ctx context.Context, edit ConfigEdit) error {
	var env envelope
	return c.post(ctx, "/api/config/app", edit, &env)
}

// SetAppConfigBulk writes several config values in one request and returns
// the per-item results.
func (c *Client) SetAppConfigBulk(ctx context.Context, edits []ConfigEdit) ([]BulkResult, error) {
	var resp struct {
		Results []BulkResult `json:"results"`
	}
	body := map[string][]ConfigEdit{"configs": edits}
	if err := c.post(ctx, "/api/config/app/bulk", body, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ResetConfig resets controller configuration to defaults. Section is
// "app", "plugins", or empty for everything.
func (c *Client) ResetConfig(ctx context.Context, section string) error {
	var env envelope
	body := map[string]string{"section": section}
	return c.post(ctx, "/api/config/reset", body, &env)
}

// Plugins lists the controller's available plugins.
func (c *Client) Plugins(ctx context.Context) ([]PluginInfo, error) {
	var resp struct {
		Plugins []PluginInfo `json:"plugins"`
	}
	if err := c.get(ctx, "/api/config/plugins/list", &resp); err != nil {
		return nil, err
	}
	return resp.Plugins, nil
}

// EnablePlugin enables a controller plugin.
func (c *Client) EnablePlugin(ctx context.Context, name string) (string, error) {
	return c.command(ctx, "/api/config/plugins/"+url.PathEscape(name)+"/enable", nil)
}

// DisablePlugin disables a controller plugin.
func (c *Client) DisablePlugin(ctx context.Context, name string) (string, error) {
	return c.command(ctx, "/api/config/plugins/"+url.PathEscape(name)+"/disable", nil)
}

// ReloadPlugin reloads a controller plugin.
func (c *Client) ReloadPlugin(ctx context.Context, name string) (string, error) {
	return c.command(ctx, "/api/config/plugins/"+url.PathEscape(name)+"/reload", nil)
}

// ExportConfig downloads the controller's configuration as a JSON document.
// A failed export comes back as an error envelope instead of the document.
func (c *Client) ExportConfig(ctx context.Context) ([]byte, error) {
	const path = "/api/config/export"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: read response: %w", path, err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(data, &env); jsonErr == nil && env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &APIError{Op: path, Message: msg}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: controller returned %d", path, resp.StatusCode)
	}
	return data, nil
}

// ImportConfig uploads a configuration document to the controller as a
// multipart file named "file", matching the import route's contract.
func (c *Client) ImportConfig(ctx context.Context, filename string, data []byte) (string, error) {
	const path = "/api/config/import"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, &buf)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("POST %s: read response: %w", path, err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(body, &env); jsonErr == nil && env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return "", &APIError{Op: path, Message: msg}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("POST %s: controller returned %d", path, resp.StatusCode)
	}
	return env.Message, nil
}

// EditBatch accumulates config edits while a settings session is open.
// Edits are session-local and never persisted: Discard drops everything,
// Flush sends the batch to the bulk endpoint. A later Set for the same
// section/key replaces the earlier value in place, so a flush replays
// edits in the order the operator first touched them.
type EditBatch struct {
	mu    sync.Mutex
	edits []ConfigEdit
	index map[string]int
}

// NewEditBatch creates an empty edit batch.
func NewEditBatch() *EditBatch {
	return &EditBatch{index: make(map[string]int)}
}

// Set records a pending edit.
func (b *EditBatch) Set(section, key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := section + "." + key
	if i, ok := b.index[id]; ok {
		b.edits[i].Value = value
		return
	}
	b.index[id] = len(b.edits)
	b.edits = append(b.edits, ConfigEdit{Section: section, Key: key, Value: value})
}

// Len returns the number of pending edits.
func (b *EditBatch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.edits)
}

// Edits returns a copy of the pending edits in insertion order.
func (b *EditBatch) Edits() []ConfigEdit {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ConfigEdit, len(b.edits))
	copy(out, b.edits)
	return out
}

// Discard drops all pending edits (settings modal Cancel / Reset).
func (b *EditBatch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edits = nil
	b.index = make(map[string]int)
}

// Flush sends the pending edits to the controller. The batch is emptied
// only when every edit succeeds, so a partial failure can be retried or
// discarded by the caller.
func (b *EditBatch) Flush(ctx context.Context, c *Client) error {
	edits := b.Edits()
	if len(edits) == 0 {
		return nil
	}

	results, err := c.SetAppConfigBulk(ctx, edits)
	if err != nil {
		return err
	}

	var failed []string
	for _, r := range results {
		if !r.Success {
			failed = append(failed, r.Section+"."+r.Key)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("config flush: %d of %d edits rejected: %s",
			len(failed), len(edits), strings.Join(failed, ", "))
	}

	b.Discard()
	return nil
}
