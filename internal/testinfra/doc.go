// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package testinfra provides container-backed infrastructure for integration tests.
//
// The package uses testcontainers-go to run a real Pi-hole v6 instance so the
// session client can be exercised against the actual appliance API rather than
// recorded responses. Everything except this doc file is behind the integration
// build tag, so unit test runs never touch Docker:
//
//	go test -tags integration ./internal/appliance/...
//
// # Pi-hole Container
//
// PiholeContainer starts the official image with a known admin password and
// exposes the mapped HTTP endpoint:
//
//	func TestBackupRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    ctx := context.Background()
//	    pihole, err := testinfra.NewPiholeContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pihole.Container)
//
//	    client := appliance.NewClient(pihole.URL, pihole.Password, false)
//	    archive, err := client.DownloadBackup(ctx)
//	    // ...
//	}
//
// The admin password is injected through FTLCONF_webserver_api_password, which
// Pi-hole v6 reads at startup. No config file editing or service restart is
// needed before the API accepts it.
//
// # CI Considerations
//
// These tests require Docker and pull the Pi-hole image on first run. Tests
// call SkipIfNoDocker so suites degrade to a skip on machines without a
// reachable Docker daemon.
package testinfra
