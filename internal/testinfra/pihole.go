// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPiholeImage is the official Pi-hole v6 Docker image.
	DefaultPiholeImage = "pihole/pihole:latest"

	// DefaultPiholePort is the embedded web server port inside the container.
	DefaultPiholePort = "80"

	// DefaultPiholePassword is the admin password the container starts with.
	DefaultPiholePassword = "integration-test-password"
)

// PiholeContainer represents a running Pi-hole instance for testing.
type PiholeContainer struct {
	testcontainers.Container
	URL      string
	Password string
}

// PiholeOption configures the Pi-hole container.
type PiholeOption func(*piholeConfig)

type piholeConfig struct {
	image        string
	password     string
	startTimeout time.Duration
}

// WithPiholeImage sets a custom Pi-hole Docker image.
func WithPiholeImage(image string) PiholeOption {
	return func(c *piholeConfig) {
		c.image = image
	}
}

// WithPiholePassword sets a custom admin password for the instance.
func WithPiholePassword(password string) PiholeOption {
	return func(c *piholeConfig) {
		c.password = password
	}
}

// WithStartTimeout sets the timeout for waiting for Pi-hole to become ready.
func WithStartTimeout(timeout time.Duration) PiholeOption {
	return func(c *piholeConfig) {
		c.startTimeout = timeout
	}
}

// NewPiholeContainer creates and starts a Pi-hole container for testing.
//
// The admin password is passed through FTLCONF_webserver_api_password, which
// Pi-hole v6 applies at startup. The container is ready once the embedded web
// server answers HTTP on the unauthenticated login info endpoint.
//
// Example:
//
//	ctx := context.Background()
//	pihole, err := NewPiholeContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer pihole.Terminate(ctx)
//
//	client := appliance.NewClient(pihole.URL, pihole.Password, false)
func NewPiholeContainer(ctx context.Context, opts ...PiholeOption) (*PiholeContainer, error) {
	cfg := &piholeConfig{
		image:        DefaultPiholeImage,
		password:     DefaultPiholePassword,
		startTimeout: 120 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultPiholePort + "/tcp"},
		Env: map[string]string{
			"FTLCONF_webserver_api_password": cfg.password,
			"TZ":                             "UTC",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultPiholePort+"/tcp"),
			// FTL serves the API on the same listener as the admin UI.
			// /api/info/login needs no session, so it confirms the API
			// layer is up rather than just the TCP socket.
			wait.ForHTTP("/api/info/login").
				WithPort(DefaultPiholePort+"/tcp").
				WithStatusCodeMatcher(func(status int) bool { return status < 500 }),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create pihole container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, DefaultPiholePort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &PiholeContainer{
		Container: container,
		URL:       fmt.Sprintf("http://%s:%s", host, port.Port()),
		Password:  cfg.password,
	}, nil
}

// Terminate stops and removes the Pi-hole container.
func (c *PiholeContainer) Terminate(ctx context.Context) error {
	return c.Container.Terminate(ctx)
}

// Logs returns the container logs for debugging failed test runs.
func (c *PiholeContainer) Logs(ctx context.Context) (string, error) {
	reader, err := c.Container.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("get logs: %w", err)
	}
	defer reader.Close()

	logs, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read logs: %w", err)
	}

	return string(logs), nil
}
