// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// Endpoint kinds. These label metrics and logs per endpoint family.
const (
	EndpointWebhook = "webhook"
	EndpointDiscord = "discord"
	EndpointSlack   = "slack"
)

// Endpoint delivers events to one configured destination.
//
// Implementations render the event into the destination's wire format and
// report delivery failure as an error; retry, breaker, and rate decisions
// all live in the Dispatcher.
type Endpoint interface {
	// Kind identifies the endpoint family: "webhook", "discord", or "slack".
	Kind() string

	// Host returns the destination host for logs and breaker names. Full
	// webhook URLs never appear in logs because the path embeds the
	// credential.
	Host() string

	// Send delivers one event.
	Send(ctx context.Context, event Event) error
}

// hostOf extracts the host portion of a webhook URL for identification.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}

// newEndpointClient builds the HTTP client shared by webhook-family
// endpoints. The client timeout is a hard backstop under the per-delivery
// context deadline.
func newEndpointClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON marshals payload and POSTs it to rawURL, returning the response
// status code and a truncated body snippet for error reporting.
func postJSON(ctx context.Context, client *http.Client, rawURL string, payload any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Checkpoint-Notify/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		snippet = []byte("(failed to read response)")
	}
	return resp.StatusCode, string(snippet), nil
}
