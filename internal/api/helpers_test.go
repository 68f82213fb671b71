// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/backup"
	"github.com/tomtom215/checkpoint/internal/config"
	"github.com/tomtom215/checkpoint/internal/models"
	"github.com/tomtom215/checkpoint/internal/notify"
	"github.com/tomtom215/checkpoint/internal/secrets"
	"github.com/tomtom215/checkpoint/internal/store"
)

// fakeAppliance stands in for a remote appliance behind the factory.
type fakeAppliance struct {
	mu          sync.Mutex
	archive     []byte
	testErr     error
	downloadErr error
	uploadErr   error
	uploads     [][]byte
	logouts     int
}

var _ appliance.Interface = (*fakeAppliance)(nil)

func (f *fakeAppliance) Authenticate(_ context.Context) error { return nil }

func (f *fakeAppliance) Version(_ context.Context) (*appliance.VersionInfo, error) {
	return applianceVersion(), nil
}

func (f *fakeAppliance) DownloadBackup(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.archive, nil
}

func (f *fakeAppliance) UploadBackup(_ context.Context, archive []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, archive)
	return nil
}

func (f *fakeAppliance) Logout(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeAppliance) TestConnection(_ context.Context) (*appliance.VersionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.testErr != nil {
		return nil, f.testErr
	}
	return applianceVersion(), nil
}

func (f *fakeAppliance) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeAppliance) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

func applianceVersion() *appliance.VersionInfo {
	info := &appliance.VersionInfo{}
	info.Version.Core.Local.Version = "v6.0.5"
	info.Version.Web.Local.Version = "v6.1"
	info.Version.FTL.Local.Version = "v6.0.4"
	return info
}

// stubScheduler reports a controllable heartbeat.
type stubScheduler struct {
	mu        sync.Mutex
	heartbeat time.Time
	jobs      int
}

func (s *stubScheduler) Heartbeat() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heartbeat
}

func (s *stubScheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs
}

func (s *stubScheduler) set(at time.Time, jobs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeat = at
	s.jobs = jobs
}

// testAPI bundles everything a handler test touches.
type testAPI struct {
	router    http.Handler
	handler   *Handler
	store     *store.Store
	appliance *fakeAppliance
	scheduler *stubScheduler
	config    *config.Config
}

// newTestAPI wires a router against an in-memory store, a real engine on a
// temp dir, and a fake appliance. Rate limiting is off so tests can hammer
// the router.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st, err := store.Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	keeper, err := secrets.NewKeeper("api-test-secret")
	if err != nil {
		t.Fatalf("secrets.NewKeeper() error = %v", err)
	}

	fake := &fakeAppliance{archive: []byte("teleporter-archive-bytes")}
	factory := func(string, string, bool) appliance.Interface { return fake }

	engine, err := backup.NewEngine(st, factory, keeper, notify.Discard, t.TempDir())
	if err != nil {
		t.Fatalf("backup.NewEngine() error = %v", err)
	}

	sched := &stubScheduler{}
	sched.set(time.Now(), 1)

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8395, Timeout: 30 * time.Second},
		Scheduler: config.SchedulerConfig{
			Enabled:          true,
			CheckInterval:    30 * time.Second,
			ExecutionTimeout: time.Minute,
		},
		API: config.APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			RateLimitDisabled: true,
		},
	}

	handler := NewHandler(st, engine, factory, keeper, sched, cfg, "test")
	return &testAPI{
		router:    NewRouter(handler),
		handler:   handler,
		store:     st,
		appliance: fake,
		scheduler: sched,
		config:    cfg,
	}
}

// envelope mirrors models.APIResponse with raw data for per-test decoding.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

// do runs one request through the router and decodes the envelope.
func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	env := &envelope{}
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), env); err != nil {
			t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

// decodeData unmarshals the envelope data into dst.
func decodeData(t *testing.T, env *envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %q: %v", string(env.Data), err)
	}
}

// validTargetBody returns a create request body that passes validation.
func validTargetBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"base_url":     "https://pihole.example.com",
		"password":     "appliance-password",
		"frequency":    "daily",
		"at_time":      "03:30",
		"max_count":    5,
		"max_age_days": 30,
	}
}

// createTarget registers a target through the API and returns it.
func (a *testAPI) createTarget(t *testing.T, name string) *models.Target {
	t.Helper()

	rec, env := a.do(t, http.MethodPost, "/api/v1/targets", validTargetBody(name))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create target: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	target := &models.Target{}
	decodeData(t, env, target)
	return target
}

// runBackup triggers a manual backup for the target and returns the record.
func (a *testAPI) runBackup(t *testing.T, targetID string) *models.ArtifactRecord {
	t.Helper()

	rec, env := a.do(t, http.MethodPost, "/api/v1/targets/"+targetID+"/backups", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("manual backup: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	record := &models.ArtifactRecord{}
	decodeData(t, env, record)
	return record
}
