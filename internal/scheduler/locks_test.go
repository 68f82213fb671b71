// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package scheduler

import (
	"errors"
	"sync"
	"testing"
)

func TestLockArenaExclusive(t *testing.T) {
	arena := newLockArena()

	if err := arena.TryAcquire("target-1"); err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if err := arena.TryAcquire("target-1"); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second TryAcquire() error = %v, want ErrLockHeld", err)
	}

	arena.Release("target-1")
	if err := arena.TryAcquire("target-1"); err != nil {
		t.Fatalf("TryAcquire() after release error = %v", err)
	}
}

func TestLockArenaKeysAreIndependent(t *testing.T) {
	arena := newLockArena()

	if err := arena.TryAcquire("target-1"); err != nil {
		t.Fatalf("TryAcquire(target-1) error = %v", err)
	}
	if err := arena.TryAcquire("target-2"); err != nil {
		t.Fatalf("TryAcquire(target-2) error = %v", err)
	}
}

func TestLockArenaReleaseUnheldIsNoop(t *testing.T) {
	arena := newLockArena()
	arena.Release("never-acquired")

	if err := arena.TryAcquire("never-acquired"); err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
}

func TestLockArenaConcurrentContention(t *testing.T) {
	arena := newLockArena()

	const contenders = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := arena.TryAcquire("shared"); err == nil {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Errorf("acquired = %d, want exactly 1", acquired)
	}
}
