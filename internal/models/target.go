// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package models

import (
	"fmt"
	"time"
)

// Frequency classifies how often a target is backed up.
type Frequency string

// Backup frequency classes.
const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Valid reports whether f is a known frequency class.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// Target is one remote appliance instance to be backed up and restored.
//
// The schedule fields resolve to exactly one trigger instant per period:
// daily fires at AtTime, weekly at AtTime on Weekday, and hourly at the
// minute of AtTime every hour. Hourly is a fixed wall-clock offset, never
// relative to process start, so restarts do not drift the schedule.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required,max=100"`

	// BaseURL may carry a reverse-proxy path prefix; endpoint paths are
	// appended to it, never substituted.
	BaseURL string `json:"base_url" validate:"required,url"`

	// Credential is the sealed appliance password. Never serialized out and
	// never logged.
	Credential string `json:"-"`

	// VerifyTLS enables certificate verification. Appliances commonly serve
	// self-signed certificates, so this defaults to false.
	VerifyTLS bool `json:"verify_tls"`

	Frequency Frequency `json:"frequency" validate:"required,oneof=hourly daily weekly"`

	// AtTime is the trigger time of day in 24h "HH:MM" form. For hourly
	// targets only the minute component is used.
	AtTime string `json:"at_time" validate:"required,datetime=15:04"`

	// Weekday selects the day for weekly schedules, using time.Weekday
	// numbering (0 = Sunday).
	Weekday int `json:"weekday" validate:"min=0,max=6"`

	// MaxCount is the number of successful artifacts retained; 0 disables
	// count-based pruning.
	MaxCount int `json:"max_count" validate:"min=0"`

	// MaxAgeDays prunes artifacts older than this many days; 0 disables
	// age-based pruning.
	MaxAgeDays int `json:"max_age_days" validate:"min=0"`

	Enabled bool `json:"enabled"`

	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TriggerTime returns the hour and minute parsed from AtTime.
func (t *Target) TriggerTime() (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", t.AtTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid at_time %q: %w", t.AtTime, err)
	}
	return parsed.Hour(), parsed.Minute(), nil
}
