// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

/*
client.go - Pi-hole v6 API Client

Session-authenticated client for the Pi-hole v6 REST API. Sessions are
obtained from POST /api/auth, carried in the X-FTL-SID header, and
re-established transparently exactly once when a call comes back 401.

API Reference: https://ftl.pi-hole.net/master/docs/
*/

package appliance

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/metrics"
)

const (
	// controlTimeout bounds auth, version, and logout calls.
	controlTimeout = 30 * time.Second

	// transferTimeout bounds archive download and upload. Archives are
	// small, but the appliance assembles them synchronously and can be
	// slow under load.
	transferTimeout = 120 * time.Second

	// sessionHeader carries the session token on authenticated calls.
	sessionHeader = "X-FTL-SID"

	authEndpoint       = "/api/auth"
	versionEndpoint    = "/api/info/version"
	teleporterEndpoint = "/api/teleporter"
)

// Interface defines the appliance operations the engines depend on.
// Client implements it; tests substitute fakes.
type Interface interface {
	Authenticate(ctx context.Context) error
	Version(ctx context.Context) (*VersionInfo, error)
	DownloadBackup(ctx context.Context) ([]byte, error)
	UploadBackup(ctx context.Context, archive []byte) error
	Logout(ctx context.Context) error
	TestConnection(ctx context.Context) (*VersionInfo, error)
}

// Ensure Client implements Interface
var _ Interface = (*Client)(nil)

// Factory builds a client for one target. The engines hold a Factory rather
// than a client because every target has its own base URL and credential.
type Factory func(baseURL, password string, verifyTLS bool) Interface

// NewFactory returns the production Factory backed by Client.
func NewFactory() Factory {
	return func(baseURL, password string, verifyTLS bool) Interface {
		return NewClient(baseURL, password, verifyTLS)
	}
}

// Client talks to a single Pi-hole appliance. Safe for concurrent use; the
// session token is guarded internally. Tokens are short-lived and never
// persisted, so the first authenticated call of a process re-authenticates.
type Client struct {
	baseURL   string
	password  string
	verifyTLS bool

	mu  sync.Mutex
	sid string

	control  *http.Client
	transfer *http.Client
	logger   zerolog.Logger
}

// NewClient creates a client for the appliance at baseURL. The URL may carry
// a reverse-proxy path prefix; it is preserved in every request.
func NewClient(baseURL, password string, verifyTLS bool) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !verifyTLS, //nolint:gosec // per-target operator toggle for self-signed appliances
			MinVersion:         tls.VersionTLS12,
		},
	}

	return &Client{
		baseURL:   baseURL,
		password:  password,
		verifyTLS: verifyTLS,
		control: &http.Client{
			Timeout:   controlTimeout,
			Transport: transport,
		},
		transfer: &http.Client{
			Timeout:   transferTimeout,
			Transport: transport,
		},
		logger: logging.With().
			Str("component", "appliance").
			Str("appliance_url", logging.RedactURL(baseURL)).
			Logger(),
	}
}

// endpointURL appends an endpoint to the base URL. Plain concatenation so a
// reverse-proxy path prefix in the base URL survives; URL resolution would
// replace the prefix with the endpoint path.
func (c *Client) endpointURL(endpoint string) string {
	return c.baseURL + endpoint
}

type authRequest struct {
	Password string `json:"password"`
}

type authResponse struct {
	Session struct {
		Valid    bool   `json:"valid"`
		SID      string `json:"sid"`
		Validity int    `json:"validity"`
	} `json:"session"`
}

// Authenticate obtains a fresh session token from the appliance.
func (c *Client) Authenticate(ctx context.Context) error {
	start := time.Now()
	err := c.authenticate(ctx)
	metrics.RecordApplianceRequest("auth", time.Since(start), err)
	return err
}

func (c *Client) authenticate(ctx context.Context) error {
	body, err := json.Marshal(authRequest{Password: c.password})
	if err != nil {
		return fmt.Errorf("failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(authEndpoint), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.control.Do(req)
	if err != nil {
		return classifyTransportError(c.baseURL, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &AuthError{Reason: "invalid password"}
	case resp.StatusCode != http.StatusOK:
		return protocolError("auth", resp)
	}

	var ar authResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return &ProtocolError{Operation: "auth", Detail: "malformed JSON body"}
	}
	if ar.Session.SID == "" {
		return &ProtocolError{Operation: "auth", Detail: "response missing session.sid"}
	}

	c.setSession(ar.Session.SID)
	c.logger.Debug().
		Str("sid", logging.SanitizeToken(ar.Session.SID)).
		Int("validity_seconds", ar.Session.Validity).
		Msg("Authenticated with appliance")
	return nil
}

// Version fetches appliance version information over the authenticated path.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	start := time.Now()
	info, err := c.version(ctx)
	metrics.RecordApplianceRequest("version", time.Since(start), err)
	return info, err
}

func (c *Client) version(ctx context.Context) (*VersionInfo, error) {
	resp, err := c.doAuthed(ctx, "version", c.control, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(versionEndpoint), http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, protocolError("version", resp)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &ProtocolError{Operation: "version", Detail: "malformed JSON body"}
	}
	return &info, nil
}

// DownloadBackup fetches a Teleporter archive from the appliance and returns
// its raw bytes.
func (c *Client) DownloadBackup(ctx context.Context) ([]byte, error) {
	start := time.Now()
	data, err := c.downloadBackup(ctx)
	metrics.RecordApplianceRequest("download", time.Since(start), err)
	if err == nil {
		metrics.RecordApplianceTransfer("download", int64(len(data)))
	}
	return data, err
}

func (c *Client) downloadBackup(ctx context.Context) ([]byte, error) {
	resp, err := c.doAuthed(ctx, "download", c.transfer, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(teleporterEndpoint), http.NoBody)
		if err != nil {
			return nil, err
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, protocolError("download", resp)
	}

	// Teleporter archives are ZIP files; anything else is suspicious but
	// not fatal, matching the appliance's loose content-type behavior.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "zip") && !strings.Contains(contentType, "octet-stream") {
		c.logger.Warn().
			Str("content_type", contentType).
			Msg("Unexpected content type for backup archive")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(c.baseURL, err)
	}

	c.logger.Debug().Int("bytes", len(data)).Msg("Downloaded backup archive")
	return data, nil
}

// UploadBackup pushes an archive to the appliance's Teleporter import
// endpoint. Destructive on the remote side; the caller owns confirmation.
func (c *Client) UploadBackup(ctx context.Context, archive []byte) error {
	start := time.Now()
	err := c.uploadBackup(ctx, archive)
	metrics.RecordApplianceRequest("upload", time.Since(start), err)
	if err == nil {
		metrics.RecordApplianceTransfer("upload", int64(len(archive)))
	}
	return err
}

func (c *Client) uploadBackup(ctx context.Context, archive []byte) error {
	// The body is rebuilt inside the closure so a post-reauth retry gets a
	// fresh reader.
	build := func() (*http.Request, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="backup.zip"`)
		header.Set("Content-Type", "application/zip")
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart body: %w", err)
		}
		if _, err := part.Write(archive); err != nil {
			return nil, fmt.Errorf("failed to write multipart body: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL(teleporterEndpoint), &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := c.doAuthed(ctx, "upload", c.transfer, build)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return protocolError("upload", resp)
	}

	c.logger.Debug().Int("bytes", len(archive)).Msg("Uploaded backup archive")
	return nil
}

// Logout closes the session on the appliance. Best-effort: the local token
// is always cleared, and a refused close is reported but rarely actionable.
func (c *Client) Logout(ctx context.Context) error {
	sid := c.sessionID()
	c.clearSession()
	if sid == "" {
		return nil
	}

	start := time.Now()
	err := c.logout(ctx, sid)
	metrics.RecordApplianceRequest("logout", time.Since(start), err)
	return err
}

func (c *Client) logout(ctx context.Context, sid string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpointURL(authEndpoint), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set(sessionHeader, sid)

	resp, err := c.control.Do(req)
	if err != nil {
		return classifyTransportError(c.baseURL, err)
	}
	drainAndClose(resp.Body)

	// 204 on success; 401/410 mean the session was already gone.
	return nil
}

// TestConnection authenticates and fetches version info, proving the whole
// credential and transport path works for this target.
func (c *Client) TestConnection(ctx context.Context) (*VersionInfo, error) {
	if err := c.Authenticate(ctx); err != nil {
		return nil, err
	}
	return c.Version(ctx)
}

// doAuthed performs an authenticated call with the 401 recovery contract:
// re-authenticate exactly once, retry exactly once, then surface the error.
func (c *Client) doAuthed(ctx context.Context, op string, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	resp, err := c.send(client, build)
	if err != nil {
		return nil, classifyTransportError(c.baseURL, err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Session expired on the appliance side.
	drainAndClose(resp.Body)
	c.clearSession()
	metrics.ApplianceReauths.Inc()
	c.logger.Info().Str("operation", op).Msg("Session expired, re-authenticating")

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	resp, err = c.send(client, build)
	if err != nil {
		return nil, classifyTransportError(c.baseURL, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp.Body)
		c.clearSession()
		return nil, &AuthError{Reason: "session rejected immediately after re-authentication"}
	}
	return resp, nil
}

// send builds a request, attaches the current session token, and executes it.
func (c *Client) send(client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, err
	}
	if sid := c.sessionID(); sid != "" {
		req.Header.Set(sessionHeader, sid)
	}
	return client.Do(req)
}

// ensureAuthenticated authenticates lazily on the first call of a process
// lifetime or after the token was cleared.
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	if c.sessionID() != "" {
		return nil
	}
	return c.authenticate(ctx)
}

func (c *Client) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

func (c *Client) setSession(sid string) {
	c.mu.Lock()
	c.sid = sid
	c.mu.Unlock()
}

func (c *Client) clearSession() {
	c.mu.Lock()
	c.sid = ""
	c.mu.Unlock()
}

// protocolError builds a ProtocolError from an unexpected response, carrying
// a short body excerpt for diagnostics.
func protocolError(op string, resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	detail := strings.TrimSpace(string(excerpt))
	if detail == "" {
		detail = "empty body"
	}
	return &ProtocolError{Operation: op, StatusCode: resp.StatusCode, Detail: detail}
}

// drainAndClose consumes a bounded amount of the body so the connection can
// be reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}
