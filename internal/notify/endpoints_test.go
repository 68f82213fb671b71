// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// capturingServer records JSON bodies POSTed to it and answers with a
// configurable status and body.
type capturingServer struct {
	mu     sync.Mutex
	bodies [][]byte

	status int
	reply  string
}

func newCapturingServer(status int, reply string) (*capturingServer, *httptest.Server) {
	cs := &capturingServer{status: status, reply: reply}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, body)
		cs.mu.Unlock()
		w.WriteHeader(cs.status)
		_, _ = w.Write([]byte(cs.reply))
	}))
	return cs, srv
}

func (c *capturingServer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func (c *capturingServer) last() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bodies) == 0 {
		return nil
	}
	return c.bodies[len(c.bodies)-1]
}

func testEvent() Event {
	return Event{
		Kind:       KindBackupFailed,
		Title:      "Backup Failed",
		Message:    "Failed to create backup: boom",
		TargetName: "alpha",
		Timestamp:  time.Date(2026, 8, 1, 3, 0, 0, 0, time.UTC),
		Details:    map[string]string{"Error": "boom"},
	}
}

func TestWebhookEndpointDeliversEventJSON(t *testing.T) {
	cs, srv := newCapturingServer(http.StatusOK, `{"id":"1"}`)
	defer srv.Close()

	ep := NewWebhookEndpoint(srv.URL, 5*time.Second)
	if ep.Kind() != EndpointWebhook {
		t.Errorf("Kind() = %q, want webhook", ep.Kind())
	}

	if err := ep.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(cs.last(), &wire); err != nil {
		t.Fatalf("server received invalid JSON: %v", err)
	}
	if wire["event"] != "backup_failed" {
		t.Errorf("event = %v, want backup_failed", wire["event"])
	}
	if wire["target"] != "alpha" {
		t.Errorf("target = %v, want alpha", wire["target"])
	}
}

func TestWebhookEndpointRejectsNon2xx(t *testing.T) {
	_, srv := newCapturingServer(http.StatusBadGateway, "upstream sad")
	defer srv.Close()

	ep := NewWebhookEndpoint(srv.URL, 5*time.Second)
	err := ep.Send(context.Background(), testEvent())
	if err == nil {
		t.Fatal("Send() should fail on 502")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error %q should mention the status code", err)
	}
}

func TestWebhookEndpointConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	ep := NewWebhookEndpoint(url, 2*time.Second)
	if err := ep.Send(context.Background(), testEvent()); err == nil {
		t.Fatal("Send() should fail when the server is gone")
	}
}

func TestDiscordEndpointPayload(t *testing.T) {
	cs, srv := newCapturingServer(http.StatusNoContent, "")
	defer srv.Close()

	ep := NewDiscordEndpoint(srv.URL, 5*time.Second)
	if err := ep.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Color       int    `json:"color"`
			Fields      []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"fields"`
			Footer struct {
				Text string `json:"text"`
			} `json:"footer"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(cs.last(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}

	embed := payload.Embeds[0]
	if embed.Title != "Backup Failed" {
		t.Errorf("embed title = %q", embed.Title)
	}
	if embed.Color != discordColorFailure {
		t.Errorf("embed color = %#x, want %#x for a failure", embed.Color, discordColorFailure)
	}
	if embed.Footer.Text != "Checkpoint" {
		t.Errorf("footer = %q, want Checkpoint", embed.Footer.Text)
	}

	names := make(map[string]string, len(embed.Fields))
	for _, f := range embed.Fields {
		names[f.Name] = f.Value
	}
	if names["Target"] != "alpha" {
		t.Errorf("Target field = %q, want alpha", names["Target"])
	}
	if names["Time"] != "2026-08-01 03:00:00" {
		t.Errorf("Time field = %q", names["Time"])
	}
	if names["Error"] != "boom" {
		t.Errorf("Error field = %q, want boom", names["Error"])
	}
}

func TestDiscordEndpointSuccessColor(t *testing.T) {
	cs, srv := newCapturingServer(http.StatusNoContent, "")
	defer srv.Close()

	event := testEvent()
	event.Kind = KindBackupSuccess
	event.Title = "Backup Completed"

	ep := NewDiscordEndpoint(srv.URL, 5*time.Second)
	if err := ep.Send(context.Background(), event); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var payload struct {
		Embeds []struct {
			Color int `json:"color"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(cs.last(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Embeds[0].Color != discordColorSuccess {
		t.Errorf("embed color = %#x, want %#x for a success", payload.Embeds[0].Color, discordColorSuccess)
	}
}

func TestSlackEndpointPayload(t *testing.T) {
	cs, srv := newCapturingServer(http.StatusOK, "ok")
	defer srv.Close()

	ep := NewSlackEndpoint(srv.URL, 5*time.Second)
	if err := ep.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var payload struct {
		Attachments []struct {
			Color  string `json:"color"`
			Blocks []struct {
				Type string `json:"type"`
				Text *struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"text"`
			} `json:"blocks"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(cs.last(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(payload.Attachments))
	}

	att := payload.Attachments[0]
	if att.Color != "danger" {
		t.Errorf("color = %q, want danger for a failure", att.Color)
	}
	if len(att.Blocks) < 3 {
		t.Fatalf("blocks = %d, want at least header, section, context", len(att.Blocks))
	}
	if att.Blocks[0].Type != "header" || att.Blocks[0].Text.Text != "Backup Failed" {
		t.Errorf("first block = %+v, want header with title", att.Blocks[0])
	}

	// The Error detail lands in a trailing mrkdwn section.
	lastBlock := att.Blocks[len(att.Blocks)-1]
	if lastBlock.Type != "section" || !strings.Contains(lastBlock.Text.Text, "*Error:* boom") {
		t.Errorf("details block = %+v", lastBlock)
	}
}

func TestSlackEndpointRequiresOkBody(t *testing.T) {
	_, srv := newCapturingServer(http.StatusOK, "invalid_payload")
	defer srv.Close()

	ep := NewSlackEndpoint(srv.URL, 5*time.Second)
	err := ep.Send(context.Background(), testEvent())
	if err == nil {
		t.Fatal("Send() should fail when Slack does not answer ok")
	}
	if !strings.Contains(err.Error(), "invalid_payload") {
		t.Errorf("error %q should carry the Slack reply", err)
	}
}

func TestSlackEndpointSuccessColor(t *testing.T) {
	cs, srv := newCapturingServer(http.StatusOK, "ok")
	defer srv.Close()

	event := RestoreSucceeded("alpha", "backup.zip")

	ep := NewSlackEndpoint(srv.URL, 5*time.Second)
	if err := ep.Send(context.Background(), event); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var payload struct {
		Attachments []struct {
			Color string `json:"color"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal(cs.last(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Attachments[0].Color != "good" {
		t.Errorf("color = %q, want good for a success", payload.Attachments[0].Color)
	}
}

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://discord.com/api/webhooks/123/abc", "discord.com"},
		{"https://hooks.slack.com/services/T/B/x", "hooks.slack.com"},
		{"http://internal:9090/hook", "internal:9090"},
		{"not a url at all", "invalid"},
	}

	for _, tt := range tests {
		if got := hostOf(tt.rawURL); got != tt.want {
			t.Errorf("hostOf(%q) = %q, want %q", tt.rawURL, got, tt.want)
		}
	}
}
