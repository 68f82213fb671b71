// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package notify

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Discord embed colors for outcome at a glance.
const (
	discordColorFailure = 0xFF0000
	discordColorSuccess = 0x00FF00
)

// DiscordEndpoint renders events as Discord webhook embeds.
type DiscordEndpoint struct {
	client *http.Client
	url    string
	host   string
}

// NewDiscordEndpoint creates a Discord webhook endpoint.
func NewDiscordEndpoint(rawURL string, timeout time.Duration) *DiscordEndpoint {
	return &DiscordEndpoint{
		client: newEndpointClient(timeout),
		url:    rawURL,
		host:   hostOf(rawURL),
	}
}

// Kind identifies the endpoint family.
func (e *DiscordEndpoint) Kind() string { return EndpointDiscord }

// Host returns the destination host.
func (e *DiscordEndpoint) Host() string { return e.host }

// discordPayload is the Discord webhook message body.
type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields"`
	Footer      discordEmbedFooter  `json:"footer"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// Send delivers the event as a Discord embed.
func (e *DiscordEndpoint) Send(ctx context.Context, event Event) error {
	status, body, err := postJSON(ctx, e.client, e.url, e.buildPayload(event))
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("discord webhook returned %d: %s", status, body)
	}
	return nil
}

func (e *DiscordEndpoint) buildPayload(event Event) discordPayload {
	color := discordColorSuccess
	if event.Kind.Failed() {
		color = discordColorFailure
	}

	fields := []discordEmbedField{
		{Name: "Target", Value: event.TargetName, Inline: true},
		{Name: "Time", Value: event.FormattedTime(), Inline: true},
	}
	for _, key := range sortedDetailKeys(event.Details) {
		fields = append(fields, discordEmbedField{Name: key, Value: event.Details[key]})
	}

	return discordPayload{
		Embeds: []discordEmbed{{
			Title:       event.Title,
			Description: event.Message,
			Color:       color,
			Fields:      fields,
			Footer:      discordEmbedFooter{Text: "Checkpoint"},
		}},
	}
}

// sortedDetailKeys gives detail fields a stable rendering order.
func sortedDetailKeys(details map[string]string) []string {
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
