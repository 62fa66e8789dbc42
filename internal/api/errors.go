// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/paycorridor/internal/auth"
	"github.com/tomtom215/paycorridor/internal/pipeline"
)

// Error codes returned in APIError.Code.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeConcurrentRun      = "CONCURRENT_RUN"
	CodeSourceUnavailable  = "SOURCE_UNAVAILABLE"
	CodeStorageError       = "STORAGE_ERROR"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeCanceled           = "CANCELED"
	CodeInternal           = "INTERNAL_ERROR"
)

// statusForError maps service errors to an HTTP status and error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrConcurrentRun):
		return http.StatusConflict, CodeConcurrentRun
	case errors.Is(err, pipeline.ErrInvalidConfig):
		return http.StatusBadRequest, CodeInvalidConfig
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return http.StatusBadGateway, CodeSourceUnavailable
	case errors.Is(err, pipeline.ErrStorage):
		return http.StatusInternalServerError, CodeStorageError
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, CodeInvalidToken
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeCanceled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// publicMessage keeps internal details out of responses for server-side
// failures; client errors echo the error text.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		return http.StatusText(status)
	}
	return err.Error()
}

var errNoStore = errors.New("store not configured")
