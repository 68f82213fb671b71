// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/config"
	"github.com/tomtom215/checkpoint/internal/models"
	"github.com/tomtom215/checkpoint/internal/notify"
	"github.com/tomtom215/checkpoint/internal/secrets"
	"github.com/tomtom215/checkpoint/internal/store"
)

// fakeAppliance stands in for a remote appliance.
type fakeAppliance struct {
	mu          sync.Mutex
	archive     []byte
	downloadErr error
	uploadErr   error
	uploads     [][]byte
	logouts     int
}

var _ appliance.Interface = (*fakeAppliance)(nil)

func (f *fakeAppliance) Authenticate(_ context.Context) error { return nil }

func (f *fakeAppliance) Version(_ context.Context) (*appliance.VersionInfo, error) {
	return &appliance.VersionInfo{}, nil
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
	return &appliance.VersionInfo{}, nil
}

func (f *fakeAppliance) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeAppliance) lastUpload() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.uploads) == 0 {
		return nil
	}
	return f.uploads[len(f.uploads)-1]
}

func (f *fakeAppliance) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(event notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) kinds() []notify.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]notify.Kind, len(p.events))
	for i, ev := range p.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func mustKeeper(t *testing.T) *secrets.Keeper {
	t.Helper()

	keeper, err := secrets.NewKeeper("engine-test-secret")
	if err != nil {
		t.Fatalf("secrets.NewKeeper() error = %v", err)
	}
	return keeper
}

// newTestEngine wires an engine to an in-memory store, the given fake
// appliance, and a recording publisher.
func newTestEngine(t *testing.T, fake *fakeAppliance) (*Engine, *store.Store, *recordingPublisher) {
	t.Helper()

	st, err := store.Open(config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	keeper := mustKeeper(t)
	pub := &recordingPublisher{}
	factory := func(string, string, bool) appliance.Interface { return fake }

	eng, err := NewEngine(st, factory, keeper, pub, t.TempDir())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return eng, st, pub
}

// seedTarget stores an enabled daily target with a sealed credential.
func seedTarget(t *testing.T, eng *Engine, st *store.Store, name string) *models.Target {
	t.Helper()

	sealed, err := eng.secrets.Seal("appliance-password")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	target := &models.Target{
		Name:       name,
		BaseURL:    "https://pihole.local",
		Credential: sealed,
		Frequency:  models.FrequencyDaily,
		AtTime:     "03:00",
		Enabled:    true,
	}
	if err := st.CreateTarget(context.Background(), target); err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	return target
}

// seedRecord inserts a record created age ago. Success records get a real
// artifact file in the engine's directory.
func seedRecord(t *testing.T, eng *Engine, target *models.Target, status models.RecordStatus, age time.Duration) *models.ArtifactRecord {
	t.Helper()

	createdAt := time.Now().UTC().Add(-age)
	id := uuid.New().String()
	record := &models.ArtifactRecord{
		ID:        id,
		TargetID:  target.ID,
		Filename:  artifactFilename(target.Name, createdAt, id),
		Status:    status,
		Trigger:   models.TriggerScheduled,
		CreatedAt: createdAt,
	}

	if status == models.StatusSuccess {
		record.FilePath = filepath.Join(eng.backupDir, record.Filename)
		if err := os.WriteFile(record.FilePath, []byte("archived-bytes"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		record.FileSize = int64(len("archived-bytes"))
	} else {
		record.Error = "synthetic failure"
	}

	if err := eng.store.InsertRecord(context.Background(), record); err != nil {
		t.Fatalf("InsertRecord() error = %v", err)
	}
	return record
}
