// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/checkpoint/internal/logging"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(old) })
	return &buf
}

func TestRequestLoggerEmitsCompletionLine(t *testing.T) {
	buf := captureLogs(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	wrapped := RequestLogger()(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/targets", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, "Request completed") {
		t.Fatalf("log output missing completion line: %s", out)
	}
	if !strings.Contains(out, `"status":500`) {
		t.Errorf("log output missing status: %s", out)
	}
	if !strings.Contains(out, `"method":"POST"`) {
		t.Errorf("log output missing method: %s", out)
	}
	if !strings.Contains(out, `"error"`) {
		t.Errorf("5xx should log at error level: %s", out)
	}
}

func TestRequestLoggerIncludesRequestID(t *testing.T) {
	buf := captureLogs(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	wrapped := RequestID()(RequestLogger()(handler))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backups", nil)
	req.Header.Set("X-Request-ID", "trace-me-7")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	out := buf.String()
	if !strings.Contains(out, `"request_id":"trace-me-7"`) {
		t.Errorf("log output missing request id: %s", out)
	}
	if !strings.Contains(out, `"warn"`) {
		t.Errorf("4xx should log at warn level: %s", out)
	}
}
