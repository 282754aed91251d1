// Package response provides standardized HTTP response structures and
// helpers for the centy daemon API. All responses follow a consistent
// format with a data field for success and an error field for failures.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/centy-io/centy-daemon/pkg/errors"
)

// Response represents the standardized API response structure.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error represents an API error with code, message, and optional details.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data, Error: nil}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{
		Data: nil,
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding errors are ignored as headers are already sent
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes a successful response with 201 status.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// NoContent writes a 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, code, message string) {
	JSON(w, http.StatusConflict, Fail(code, message, ""))
}

// InternalError writes a 500 error response without exposing details.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ErrorFromType maps typed errors to appropriate HTTP responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		NotFound(w, err.Error(), "")
	case errors.IsNotInitialized(err):
		Conflict(w, "NOT_INITIALIZED", err.Error())
	case errors.IsAlreadyExists(err):
		Conflict(w, "ALREADY_EXISTS", err.Error())
	case errors.IsStalePlan(err):
		Conflict(w, "STALE_PLAN", err.Error())
	case errors.IsValidationError(err):
		BadRequest(w, err.Error(), "")
	case errors.IsCorruptManifest(err):
		// Corruption is never auto-repaired; surface it loudly.
		JSON(w, http.StatusInternalServerError, Fail("CORRUPT_MANIFEST", err.Error(), ""))
	default:
		var tplErr *errors.TemplateError
		if errors.As(err, &tplErr) {
			BadRequest(w, err.Error(), "")
			return
		}
		InternalError(w, err)
	}
}
