// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

// Package validation wraps go-playground/validator v10 behind a singleton
// instance and translates field errors into the API error envelope.
//
// Request structs declare their rules as validate tags:
//
//	type CreateTargetRequest struct {
//	    Name      string `json:"name" validate:"required,max=100"`
//	    BaseURL   string `json:"base_url" validate:"required,url"`
//	    Frequency string `json:"frequency" validate:"required,oneof=hourly daily weekly"`
//	}
//
// Handlers validate after decoding and hand the translated error straight
// to the response writer:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
package validation
