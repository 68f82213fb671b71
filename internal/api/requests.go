// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/checkpoint/internal/models"
)

// CreateTargetRequest is the POST /api/v1/targets body. The password
// arrives in plaintext over the request and is sealed before it touches
// the store; it is never echoed back.
type CreateTargetRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	BaseURL    string `json:"base_url" validate:"required,url"`
	Password   string `json:"password" validate:"required,min=1"`
	VerifyTLS  bool   `json:"verify_tls"`
	Frequency  string `json:"frequency" validate:"required,oneof=hourly daily weekly"`
	AtTime     string `json:"at_time" validate:"required,datetime=15:04"`
	Weekday    int    `json:"weekday" validate:"min=0,max=6"`
	MaxCount   int    `json:"max_count" validate:"min=0"`
	MaxAgeDays int    `json:"max_age_days" validate:"min=0"`

	// Enabled defaults to true when omitted.
	Enabled *bool `json:"enabled"`
}

// UpdateTargetRequest is the PUT /api/v1/targets/{id} body. PUT replaces
// the whole resource except the credential: an empty password keeps the
// stored one.
type UpdateTargetRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	BaseURL    string `json:"base_url" validate:"required,url"`
	Password   string `json:"password"`
	VerifyTLS  bool   `json:"verify_tls"`
	Frequency  string `json:"frequency" validate:"required,oneof=hourly daily weekly"`
	AtTime     string `json:"at_time" validate:"required,datetime=15:04"`
	Weekday    int    `json:"weekday" validate:"min=0,max=6"`
	MaxCount   int    `json:"max_count" validate:"min=0"`
	MaxAgeDays int    `json:"max_age_days" validate:"min=0"`
	Enabled    *bool  `json:"enabled"`
}

// RestoreRequest is the POST /api/v1/backups/{id}/restore body. Restore
// overwrites live appliance configuration, so the caller must opt in.
type RestoreRequest struct {
	Confirm bool `json:"confirm"`
}

// maxBodyBytes caps request bodies. The largest legitimate body is a
// target definition; a megabyte is generous.
const maxBodyBytes = 1 << 20

// decodeJSON reads a request body into dst, rejecting unknown fields so
// typos like "frequncy" fail loudly instead of silently applying defaults.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pagination holds sanitized limit/offset query values.
type pagination struct {
	Limit  int
	Offset int
}

// parsePagination clamps limit and offset to the configured bounds instead
// of erroring: an oversized limit degrades to the maximum page size.
func (h *Handler) parsePagination(r *http.Request) pagination {
	p := pagination{Limit: h.config.API.DefaultPageSize}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > h.config.API.MaxPageSize {
		p.Limit = h.config.API.MaxPageSize
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			p.Offset = v
		}
	}

	return p
}

// applyCreate builds a new Target from the request. The credential field
// is left empty; sealing happens in the handler where the keeper lives.
func (req *CreateTargetRequest) applyCreate() *models.Target {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return &models.Target{
		Name:       req.Name,
		BaseURL:    req.BaseURL,
		VerifyTLS:  req.VerifyTLS,
		Frequency:  models.Frequency(req.Frequency),
		AtTime:     req.AtTime,
		Weekday:    req.Weekday,
		MaxCount:   req.MaxCount,
		MaxAgeDays: req.MaxAgeDays,
		Enabled:    enabled,
	}
}

// applyUpdate overwrites target's mutable fields in place, leaving ID,
// credential and bookkeeping columns alone.
func (req *UpdateTargetRequest) applyUpdate(target *models.Target) {
	target.Name = req.Name
	target.BaseURL = req.BaseURL
	target.VerifyTLS = req.VerifyTLS
	target.Frequency = models.Frequency(req.Frequency)
	target.AtTime = req.AtTime
	target.Weekday = req.Weekday
	target.MaxCount = req.MaxCount
	target.MaxAgeDays = req.MaxAgeDays
	if req.Enabled != nil {
		target.Enabled = *req.Enabled
	}
}
