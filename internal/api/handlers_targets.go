// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/validation"
)

// ListTargets returns every configured target. Credentials are sealed in
// the store and excluded from serialization either way.
func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.ListTargets(r.Context())
	if err != nil {
		respondStoreError(r, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, targets)
}

// CreateTarget registers a new appliance target. The plaintext password is
// sealed before persisting; the scheduler picks the target up on its next
// reconciliation pass.
func (h *Handler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req CreateTargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErrorCode(r, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(r, w, http.StatusBadRequest, verr.ToAPIError(), nil)
		return
	}

	target := req.applyCreate()

	sealed, err := h.keeper.Seal(req.Password)
	if err != nil {
		respondErrorCode(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to seal credential", err)
		return
	}
	target.Credential = sealed

	if err := h.store.CreateTarget(r.Context(), target); err != nil {
		respondStoreError(r, w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("target", target.Name).
		Str("id", target.ID).
		Msg("Target created")
	respondSuccess(w, http.StatusCreated, target)
}

// GetTarget returns one target by id.
func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.store.GetTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}
	respondSuccess(w, http.StatusOK, target)
}

// UpdateTarget replaces a target's configuration. An empty password keeps
// the stored credential; schedule changes take effect at the scheduler's
// next reconciliation pass.
func (h *Handler) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.store.GetTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	var req UpdateTargetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErrorCode(r, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(r, w, http.StatusBadRequest, verr.ToAPIError(), nil)
		return
	}

	req.applyUpdate(target)
	if req.Password != "" {
		sealed, err := h.keeper.Seal(req.Password)
		if err != nil {
			respondErrorCode(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to seal credential", err)
			return
		}
		target.Credential = sealed
	}

	if err := h.store.UpdateTarget(r.Context(), target); err != nil {
		respondStoreError(r, w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("target", target.Name).
		Str("id", target.ID).
		Msg("Target updated")
	respondSuccess(w, http.StatusOK, target)
}

// DeleteTarget removes a target. Its backup records stay until the nightly
// sweep reclaims them, so artifacts remain downloadable for a while after
// the target is gone.
func (h *Handler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteTarget(r.Context(), id); err != nil {
		respondStoreError(r, w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("id", id).Msg("Target deleted")
	respondSuccess(w, http.StatusOK, map[string]string{"id": id})
}

// TestTarget proves the target's credential and transport path by opening
// a session and fetching version info. Nothing is persisted.
func (h *Handler) TestTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.store.GetTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	password, err := h.keeper.Open(target.Credential)
	if err != nil {
		respondErrorCode(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to unseal credential", err)
		return
	}

	client := h.clients(target.BaseURL, password, target.VerifyTLS)
	info, err := client.TestConnection(r.Context())
	if err != nil {
		respondDomainError(r, w, err)
		return
	}

	// Free the appliance's session slot; Pi-hole allows very few.
	if err := client.Logout(r.Context()); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Session logout after test failed")
	}

	respondSuccess(w, http.StatusOK, info)
}
