// Package apiclient calls the gateway's /api routes on behalf of the console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yangrchen/actor-runner/pkg/platform"
	"github.com/yangrchen/actor-runner/pkg/types"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for the gateway at baseURL. Runs block until the
// gateway finishes polling, so the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *Client) ListActors(ctx context.Context, token string) ([]types.Actor, error) {
	var resp types.ActorsResponse
	if err := c.call(ctx, http.MethodPost, "/api/list-actors", token, struct{}{}, &resp, "Failed to fetch actors"); err != nil {
		return nil, err
	}
	return resp.Actors, nil
}

func (c *Client) Schema(ctx context.Context, token, actorID string) (json.RawMessage, error) {
	var resp types.SchemaResponse
	path := "/api/get-schema?" + url.Values{"actorId": {actorID}}.Encode()
	if err := c.call(ctx, http.MethodGet, path, token, nil, &resp, "Failed to fetch schema"); err != nil {
		return nil, err
	}
	return resp.Schema, nil
}

func (c *Client) Metadata(ctx context.Context, token, actorID string) (json.RawMessage, error) {
	var resp types.MetadataResponse
	path := "/api/get-actor-metadata?" + url.Values{"actorId": {actorID}}.Encode()
	if err := c.call(ctx, http.MethodGet, path, token, nil, &resp, "Failed to fetch actor metadata"); err != nil {
		return nil, err
	}
	return resp.Actor, nil
}

func (c *Client) Run(ctx context.Context, token, actorID string, input json.RawMessage) (types.RunResult, error) {
	var resp types.RunResult
	req := types.RunRequest{ActorID: actorID, Input: input}
	if err := c.call(ctx, http.MethodPost, "/api/run-actor", token, req, &resp, "Failed to run actor"); err != nil {
		return types.RunResult{}, err
	}
	return resp, nil
}

// call performs one request. Failures carry the gateway's error message and
// status as a *platform.Error, or fallback when the body has no message.
func (c *Client) call(ctx context.Context, method, path, token string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return platform.NewError(platform.KindNetwork, http.StatusInternalServerError, fmt.Sprintf("%s: %v", fallback, err))
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if res.StatusCode/100 != 2 {
		var e types.ErrorResponse
		msg := fallback
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return platform.NewError(kindFor(res.StatusCode), res.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func kindFor(status int) platform.Kind {
	switch status {
	case http.StatusBadRequest:
		return platform.KindInvalid
	case http.StatusRequestTimeout:
		return platform.KindTimeout
	}
	return platform.KindForStatus(status)
}
