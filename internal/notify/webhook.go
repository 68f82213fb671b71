// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// WebhookEndpoint POSTs the event as-is to a generic JSON consumer.
// The wire format is the Event JSON encoding; any 2xx response counts
// as delivered.
type WebhookEndpoint struct {
	client *http.Client
	url    string
	host   string
}

// NewWebhookEndpoint creates a generic JSON webhook endpoint.
func NewWebhookEndpoint(rawURL string, timeout time.Duration) *WebhookEndpoint {
	return &WebhookEndpoint{
		client: newEndpointClient(timeout),
		url:    rawURL,
		host:   hostOf(rawURL),
	}
}

// Kind identifies the endpoint family.
func (e *WebhookEndpoint) Kind() string { return EndpointWebhook }

// Host returns the destination host.
func (e *WebhookEndpoint) Host() string { return e.host }

// Send delivers the event as a JSON POST.
func (e *WebhookEndpoint) Send(ctx context.Context, event Event) error {
	status, body, err := postJSON(ctx, e.client, e.url, event)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook returned %d: %s", status, body)
	}
	return nil
}
