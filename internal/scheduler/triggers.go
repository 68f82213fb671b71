// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package scheduler

import (
	"fmt"
	"time"

	"github.com/tomtom215/checkpoint/internal/models"
)

// trigger is a parsed schedule. Fire instants are generated from wall-clock
// time alone, so two processes with the same trigger agree on the cadence
// regardless of when either started.
type trigger struct {
	frequency models.Frequency
	hour      int
	minute    int
	weekday   time.Weekday
}

// newTrigger parses a target's schedule fields. Parsing happens once per
// job, after which next is pure and cannot fail.
func newTrigger(t *models.Target) (trigger, error) {
	hour, minute, err := t.TriggerTime()
	if err != nil {
		return trigger{}, err
	}
	if !t.Frequency.Valid() {
		return trigger{}, fmt.Errorf("unknown frequency %q", t.Frequency)
	}
	if t.Weekday < 0 || t.Weekday > 6 {
		return trigger{}, fmt.Errorf("weekday out of range: %d", t.Weekday)
	}
	return trigger{
		frequency: t.Frequency,
		hour:      hour,
		minute:    minute,
		weekday:   time.Weekday(t.Weekday),
	}, nil
}

// next returns the first fire instant strictly after the given time, in
// that time's location. Hourly triggers use only the minute component.
func (tr trigger) next(after time.Time) time.Time {
	switch tr.frequency {
	case models.FrequencyHourly:
		candidate := time.Date(after.Year(), after.Month(), after.Day(), after.Hour(), tr.minute, 0, 0, after.Location())
		if !candidate.After(after) {
			candidate = candidate.Add(time.Hour)
		}
		return candidate
	case models.FrequencyWeekly:
		days := (int(tr.weekday) - int(after.Weekday()) + 7) % 7
		candidate := time.Date(after.Year(), after.Month(), after.Day()+days, tr.hour, tr.minute, 0, 0, after.Location())
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate
	default:
		candidate := time.Date(after.Year(), after.Month(), after.Day(), tr.hour, tr.minute, 0, 0, after.Location())
		if !candidate.After(after) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate
	}
}

// catchUp walks a trigger forward past now, returning the most recent due
// instant and the first future one. A downtime gap spanning several
// instants therefore collapses into a single catch-up fire.
func catchUp(trig trigger, scheduled, now time.Time) (latest, next time.Time) {
	latest = scheduled
	for {
		next = trig.next(latest)
		if next.After(now) {
			return latest, next
		}
		latest = next
	}
}

// NextFire computes a target's next trigger instant after the given time.
func NextFire(t *models.Target, after time.Time) (time.Time, error) {
	trig, err := newTrigger(t)
	if err != nil {
		return time.Time{}, err
	}
	return trig.next(after), nil
}
