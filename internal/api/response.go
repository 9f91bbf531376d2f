// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/feed"
	"github.com/rookery-social/rookery/internal/live"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/storage"
	"github.com/rookery-social/rookery/internal/views"
)

// Error codes returned in the response envelope.
const (
	CodeValidationFailure = "VALIDATION_FAILURE"
	CodeNotFound          = "NOT_FOUND"
	CodeSessionEnded      = "SESSION_ENDED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL"
)

// Envelope is the uniform response shape for every JSON endpoint.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError carries a stable machine code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respond writes a success envelope.
func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

// respondError maps a domain error onto a status code and envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logging.CtxErr(r.Context(), err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// Internal detail stays in the logs.
		msg = "internal error"
	}
	writeJSON(w, status, Envelope{Success: false, Error: &APIError{Code: code, Message: msg}})
}

// respondValidation writes a 400 with an explicit message.
func respondValidation(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Envelope{
		Success: false,
		Error:   &APIError{Code: CodeValidationFailure, Message: message},
	})
}

// classify maps domain errors to (status, code). Unrecognized errors
// are internal.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, feed.ErrBadQuery),
		errors.Is(err, views.ErrInvalidID),
		errors.Is(err, live.ErrInvalidID):
		return http.StatusBadRequest, CodeValidationFailure
	case errors.Is(err, storage.ErrSessionEnded):
		return http.StatusConflict, CodeSessionEnded
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Err(err).Msg("response encode failed")
	}
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
