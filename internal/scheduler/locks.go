// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package scheduler

import (
	"errors"
	"sync"
)

// ErrLockHeld reports that an exclusive execution lock is already taken.
// Callers skip the contended run; they never wait for the holder.
var ErrLockHeld = errors.New("execution lock already held")

// lockArena hands out per-key exclusive locks with try-lock semantics.
// Contenders are turned away with ErrLockHeld instead of queueing, which
// keeps a slow backup from stacking up repeat runs behind it.
type lockArena struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLockArena() *lockArena {
	return &lockArena{held: make(map[string]struct{})}
}

// TryAcquire claims the lock for key or returns ErrLockHeld.
func (a *lockArena) TryAcquire(key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, taken := a.held[key]; taken {
		return ErrLockHeld
	}
	a.held[key] = struct{}{}
	return nil
}

// Release frees the lock for key. Releasing an unheld key is a no-op.
func (a *lockArena) Release(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.held, key)
}
