// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRouterAssignsRequestID(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(t, http.MethodGet, "/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID")
	}
}

func TestRouterSetsSecurityHeaders(t *testing.T) {
	a := newTestAPI(t)

	rec, _ := a.do(t, http.MethodGet, "/api/v1/targets", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// backups_in_flight is a plain gauge, registered at package init, so it
	// is always present in the exposition.
	if !strings.Contains(rec.Body.String(), "backups_in_flight") {
		t.Error("exposition missing service metrics")
	}
}

func TestRouterUnknownRouteEnvelope(t *testing.T) {
	a := newTestAPI(t)

	rec, env := a.do(t, http.MethodGet, "/api/v1/nonsense", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestRouterMethodNotAllowedEnvelope(t *testing.T) {
	a := newTestAPI(t)

	rec, env := a.do(t, http.MethodPatch, "/api/v1/targets", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	a := newTestAPI(t)
	a.config.API.CORSOrigins = []string{"https://admin.example.com"}
	router := NewRouter(a.handler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/targets", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestPaginationDefaults(t *testing.T) {
	a := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/backups", nil)
	page := a.handler.parsePagination(req)
	if page.Limit != a.config.API.DefaultPageSize {
		t.Errorf("Limit = %d, want default %d", page.Limit, a.config.API.DefaultPageSize)
	}
	if page.Offset != 0 {
		t.Errorf("Offset = %d, want 0", page.Offset)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/backups?limit=-5&offset=-2", nil)
	page = a.handler.parsePagination(req)
	if page.Limit != a.config.API.DefaultPageSize || page.Offset != 0 {
		t.Errorf("negative params: limit=%d offset=%d", page.Limit, page.Offset)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/backups?limit=7&offset=3", nil)
	page = a.handler.parsePagination(req)
	if page.Limit != 7 || page.Offset != 3 {
		t.Errorf("explicit params: limit=%d offset=%d", page.Limit, page.Offset)
	}
}
