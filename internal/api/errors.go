// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/checkpoint/internal/appliance"
	"github.com/tomtom215/checkpoint/internal/backup"
	"github.com/tomtom215/checkpoint/internal/models"
	"github.com/tomtom215/checkpoint/internal/store"
)

// apiError pairs an HTTP status with the envelope error body.
type apiError struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
}

// classifyError maps domain errors onto HTTP statuses and stable error
// codes. Appliance failures surface as 502 because the upstream appliance,
// not this service, refused or broke the exchange.
func classifyError(err error) apiError {
	var (
		tlsErr   *appliance.TLSError
		connErr  *appliance.ConnectionError
		authErr  *appliance.AuthError
		protoErr *appliance.ProtocolError
		notFound *backup.NotFoundError
		corrupt  *backup.IntegrityError
	)

	switch {
	case errors.As(err, &tlsErr):
		return apiError{
			Status:  http.StatusBadGateway,
			Code:    "TLS_ERROR",
			Message: tlsErr.Error(),
			Details: map[string]interface{}{
				"hint": "TLS verification can be disabled per target for self-signed certificates",
			},
		}
	case errors.As(err, &authErr):
		return apiError{
			Status:  http.StatusBadGateway,
			Code:    "AUTH_ERROR",
			Message: authErr.Error(),
		}
	case errors.As(err, &connErr):
		return apiError{
			Status:  http.StatusBadGateway,
			Code:    "CONNECTION_ERROR",
			Message: connErr.Error(),
		}
	case errors.As(err, &protoErr):
		return apiError{
			Status:  http.StatusBadGateway,
			Code:    "PROTOCOL_ERROR",
			Message: protoErr.Error(),
		}
	case errors.Is(err, store.ErrTargetNotFound):
		return apiError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: "target not found",
		}
	case errors.Is(err, store.ErrRecordNotFound):
		return apiError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: "backup record not found",
		}
	case errors.As(err, &notFound):
		return apiError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: notFound.Error(),
		}
	case errors.Is(err, backup.ErrTargetMissing):
		return apiError{
			Status:  http.StatusConflict,
			Code:    "TARGET_MISSING",
			Message: "the target that owns this backup no longer exists",
		}
	case errors.Is(err, backup.ErrConfirmationRequired):
		return apiError{
			Status:  http.StatusBadRequest,
			Code:    "CONFIRMATION_REQUIRED",
			Message: "restore overwrites live appliance configuration; set confirm to true",
		}
	case errors.As(err, &corrupt):
		return apiError{
			Status:  http.StatusConflict,
			Code:    "INTEGRITY_ERROR",
			Message: corrupt.Error(),
		}
	default:
		return apiError{
			Status:  http.StatusInternalServerError,
			Code:    "INTERNAL_ERROR",
			Message: "an internal error occurred",
		}
	}
}

// respondDomainError classifies err and writes the error envelope.
func respondDomainError(r *http.Request, w http.ResponseWriter, err error) {
	mapped := classifyError(err)
	respondError(r, w, mapped.Status, &models.APIError{
		Code:    mapped.Code,
		Message: mapped.Message,
		Details: mapped.Details,
	}, err)
}

// respondStoreError handles errors from direct store calls, separating
// missing resources from backend failures. Use respondDomainError for
// engine and appliance paths instead.
func respondStoreError(r *http.Request, w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrTargetNotFound) || errors.Is(err, store.ErrRecordNotFound) {
		respondDomainError(r, w, err)
		return
	}
	respondErrorCode(r, w, http.StatusInternalServerError, "STORE_ERROR", "metadata store operation failed", err)
}
