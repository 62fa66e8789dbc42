// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/paycorridor/internal/models"
)

// Login exchanges operator credentials for an access and refresh token.
// Unknown users and wrong passwords both yield 401 INVALID_CREDENTIALS.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.LoginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(w, r, err, nil)
		return
	}
	respondSuccess(w, http.StatusOK, pair, start)
}

// Refresh rotates a refresh token. The presented token is revoked.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, ok := h.decodeRefresh(w, r)
	if !ok {
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, err, nil)
		return
	}
	respondSuccess(w, http.StatusOK, pair, start)
}

// Logout revokes a refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, ok := h.decodeRefresh(w, r)
	if !ok {
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		respondServiceError(w, r, err, nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "logged_out"}, start)
}

func (h *Handler) decodeRefresh(w http.ResponseWriter, r *http.Request) (models.RefreshRequest, bool) {
	var req models.RefreshRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error(), nil)
		return req, false
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, apiErr)
		return req, false
	}
	return req, true
}
