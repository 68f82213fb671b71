// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/checkpoint/internal/logging"
	"github.com/tomtom215/checkpoint/internal/models"
)

// CreateBackup triggers an immediate backup of one target, bypassing the
// schedule. The response carries the resulting record either way: a failed
// run still persists a failed record, returned alongside the error.
// Manual runs get the same execution timeout as scheduled ones.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	target, err := h.store.GetTarget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Scheduler.ExecutionTimeout)
	defer cancel()

	record, err := h.engine.CreateBackup(ctx, target, models.TriggerManual)
	if err != nil {
		mapped := classifyError(err)
		respondJSON(w, mapped.Status, &models.APIResponse{
			Status:   "error",
			Data:     record,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error: &models.APIError{
				Code:    mapped.Code,
				Message: mapped.Message,
				Details: mapped.Details,
			},
		})
		return
	}

	respondSuccess(w, http.StatusCreated, record)
}

// ListTargetBackups returns one target's records, newest first, with
// offset pagination. An unknown target is a 404 rather than an empty list.
func (h *Handler) ListTargetBackups(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	if _, err := h.store.GetTarget(r.Context(), targetID); err != nil {
		respondStoreError(r, w, err)
		return
	}

	page := h.parsePagination(r)
	records, err := h.store.ListRecordsByTarget(r.Context(), targetID, page.Limit, page.Offset)
	if err != nil {
		respondStoreError(r, w, err)
		return
	}
	total, err := h.store.CountRecordsByTarget(r.Context(), targetID)
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	respondSuccess(w, http.StatusOK, &models.RecordsResponse{
		Records: records,
		Pagination: models.PageInfo{
			Limit:      page.Limit,
			Offset:     page.Offset,
			TotalCount: total,
			HasMore:    page.Offset+len(records) < total,
		},
	})
}

// ListBackups returns records across every target, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	page := h.parsePagination(r)
	records, err := h.store.ListAllRecords(r.Context(), page.Limit, page.Offset)
	if err != nil {
		respondStoreError(r, w, err)
		return
	}
	total, err := h.store.CountRecords(r.Context())
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	respondSuccess(w, http.StatusOK, &models.RecordsResponse{
		Records: records,
		Pagination: models.PageInfo{
			Limit:      page.Limit,
			Offset:     page.Offset,
			TotalCount: total,
			HasMore:    page.Offset+len(records) < total,
		},
	})
}

// DownloadBackup streams the artifact file behind a record. Works for
// orphaned records too; only the file must still exist.
func (h *Handler) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	path, err := h.engine.ArtifactFile(record)
	if err != nil {
		respondDomainError(r, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

// DeleteBackup removes a record and its artifact, file first so a failed
// file removal leaves the record visible for a retry.
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	if err := h.engine.DeleteBackup(r.Context(), record); err != nil {
		respondDomainError(r, w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("id", record.ID).
		Str("filename", record.Filename).
		Msg("Backup deleted via API")
	respondSuccess(w, http.StatusOK, map[string]string{"id": record.ID})
}

// RestoreBackup uploads an artifact back to its owning appliance. The body
// must carry confirm=true; restoring overwrites the appliance's live
// configuration.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(r, w, err)
		return
	}

	var req RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondErrorCode(r, w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Scheduler.ExecutionTimeout)
	defer cancel()

	if err := h.engine.RestoreBackup(ctx, record, req.Confirm); err != nil {
		respondDomainError(r, w, err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{
		"id":        record.ID,
		"target_id": record.TargetID,
		"filename":  record.Filename,
	})
}
