package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError, so all error bodies
// have the same shape:
//
//	{"error": "Items list not found with id abc123"}

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
	"github.com/rodionaltshuler/smart-reminder-server/internal/auth"
	"github.com/rodionaltshuler/smart-reminder-server/internal/model"
)

// maxBodyBytes caps request bodies; every payload here is a few fields.
const maxBodyBytes = 1 << 20

const internalErrorMessage = "An internal error occurred"

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends data as JSON with the given status code.
// Headers must be set before WriteHeader; the body goes last.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.ErrValidation:
		return http.StatusBadRequest
	case apperror.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperror.ErrForbidden:
		return http.StatusForbidden
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to its status and writes it.
//
// Internal errors are logged with their cause and answered with a fixed
// message; the cause may contain SQL or file paths and never reaches the
// client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	writeErrorStatus(w, r, logger, statusFor(err), err)
}

func writeErrorStatus(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, err error) {
	message := internalErrorMessage
	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		message = appErr.Message
	}

	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, ErrorResponse{Error: message})
}

// principal returns the authenticated user. Routes behind the auth gate
// always have one; a missing principal means the route was wired without
// the gate and is answered with 401.
func principal(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: fmt.Sprintf("Auth header {%s} is missing", auth.HeaderName),
		})
		return nil, false
	}
	return user, true
}

// readParams returns the body parameters of r. Clients send either JSON
// objects or urlencoded forms; both end up as url.Values. Query parameters
// are not included.
func readParams(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, apperror.ValidationFailed("", "Invalid form body")
		}
		return r.PostForm, nil
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, apperror.ValidationFailed("", "Invalid JSON body")
	}
	values := url.Values{}
	for k, v := range body {
		switch v := v.(type) {
		case string:
			values.Set(k, v)
		case float64, bool:
			values.Set(k, fmt.Sprint(v))
		}
	}
	return values, nil
}
