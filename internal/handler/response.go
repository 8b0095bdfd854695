package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// CONSISTENT RESPONSE FORMAT:
// Every mutation answers with the same envelope:
//   {"success": true,  "message": "Link created", "id": "cq9..."}
//   {"success": false, "error": "validation_error", "message": "url must start with http:// or https://"}
//
// The admin UI and scripts only ever need to look at "success".

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/linkshelf/internal/apperror"
)

// maxBodyBytes caps JSON request bodies. A link is well under 2 KB.
const maxBodyBytes = 64 << 10

// ErrorResponse is the failure shape returned by all API endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Input field at fault, for validation errors
}

// MutationResponse is the success shape of create/update/delete.
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body.
// Once Encode writes, the headers are sent and later changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// The headers are already sent, we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps a domain error to its HTTP status and machine-readable type.
//
// errors.Is() walks the whole chain, so a service error like
//
//	fmt.Errorf("updating link: %w", apperror.NotFound("link", id))
//
// still maps to 404.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer never knows about status codes. A CLI consumer of the
// same service maps ErrNotFound to a message instead of a 404.
//
// Unknown errors become a generic 500. The raw message might contain SQL or
// file paths, so it is never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	status, errorType := statusFor(err)

	resp := ErrorResponse{Error: errorType, Message: apperror.UserMessage(err)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}
	if status == http.StatusInternalServerError {
		resp.Message = "An internal error occurred"
	}
	writeJSON(w, status, resp)
}

// writeBadRequest reports a request the API could not parse.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected so typos like "categoryID" fail loudly instead
// of being silently ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
