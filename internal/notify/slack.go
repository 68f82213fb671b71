// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SlackEndpoint renders events as Slack webhook attachments.
type SlackEndpoint struct {
	client *http.Client
	url    string
	host   string
}

// NewSlackEndpoint creates a Slack webhook endpoint.
func NewSlackEndpoint(rawURL string, timeout time.Duration) *SlackEndpoint {
	return &SlackEndpoint{
		client: newEndpointClient(timeout),
		url:    rawURL,
		host:   hostOf(rawURL),
	}
}

// Kind identifies the endpoint family.
func (e *SlackEndpoint) Kind() string { return EndpointSlack }

// Host returns the destination host.
func (e *SlackEndpoint) Host() string { return e.host }

// slackPayload is the Slack webhook message body.
type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"` // plain_text or mrkdwn
	Text string `json:"text"`
}

// Send delivers the event as a Slack attachment. Slack signals success
// with a 200 and the literal body "ok".
func (e *SlackEndpoint) Send(ctx context.Context, event Event) error {
	status, body, err := postJSON(ctx, e.client, e.url, e.buildPayload(event))
	if err != nil {
		return err
	}
	if status != http.StatusOK || body != "ok" {
		return fmt.Errorf("slack webhook returned %d: %s", status, body)
	}
	return nil
}

func (e *SlackEndpoint) buildPayload(event Event) slackPayload {
	color := "good"
	if event.Kind.Failed() {
		color = "danger"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: event.Title},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: event.Message},
		},
		{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Target:* %s", event.TargetName)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Time:* %s", event.FormattedTime())},
			},
		},
	}

	if len(event.Details) > 0 {
		lines := make([]string, 0, len(event.Details))
		for _, key := range sortedDetailKeys(event.Details) {
			lines = append(lines, fmt.Sprintf("*%s:* %s", key, event.Details[key]))
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: strings.Join(lines, "\n")},
		})
	}

	return slackPayload{Attachments: []slackAttachment{{Color: color, Blocks: blocks}}}
}
