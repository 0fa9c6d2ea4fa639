// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aibor/virtsup/internal/qmp"
	"github.com/aibor/virtsup/internal/registry"
	"github.com/aibor/virtsup/internal/supervisor"
)

// Client talks to a server serving the control API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new [Client] for the server at the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// List returns all instances.
func (c *Client) List(ctx context.Context) ([]registry.Info, error) {
	var infos []registry.Info

	err := c.do(ctx, http.MethodGet, "/vms", nil, &infos)

	return infos, err
}

// Get returns the instance with the given ID.
func (c *Client) Get(ctx context.Context, id uint64) (registry.Info, error) {
	var info registry.Info

	err := c.do(ctx, http.MethodGet, vmPath(id, ""), nil, &info)

	return info, err
}

// Start launches a new instance.
func (c *Client) Start(ctx context.Context, req supervisor.LaunchRequest) (registry.Info, error) {
	var info registry.Info

	err := c.do(ctx, http.MethodPost, "/vms", req, &info)

	return info, err
}

// Action runs one of the lifecycle actions on the instance.
func (c *Client) Action(ctx context.Context, id uint64, action string) (registry.Info, error) {
	var info registry.Info

	err := c.do(ctx, http.MethodPost, vmPath(id, action), nil, &info)

	return info, err
}

// Status returns the guest run state.
func (c *Client) Status(ctx context.Context, id uint64) (qmp.Status, error) {
	var status qmp.Status

	err := c.do(ctx, http.MethodGet, vmPath(id, "status"), nil, &status)

	return status, err
}

// Execute runs an arbitrary QMP command.
func (c *Client) Execute(
	ctx context.Context,
	id uint64,
	command string,
	arguments json.RawMessage,
) (json.RawMessage, error) {
	var resp QMPResponse

	req := QMPRequest{Execute: command, Arguments: arguments}
	err := c.do(ctx, http.MethodPost, vmPath(id, "qmp"), req, &resp)

	return resp.Return, err
}

// Prune removes exited instances and returns their IDs.
func (c *Client) Prune(ctx context.Context) ([]uint64, error) {
	var resp PruneResponse

	err := c.do(ctx, http.MethodPost, "/vms/prune", nil, &resp)

	return resp.Pruned, err
}

func vmPath(id uint64, action string) string {
	path := "/vms/" + strconv.FormatUint(id, 10)
	if action != "" {
		path += "/" + action
	}

	return path
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse

		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		return &StatusError{Code: resp.StatusCode, Message: errResp.Error}
	}

	err = json.NewDecoder(resp.Body).Decode(result)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
