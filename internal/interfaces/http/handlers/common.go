// Package handlers implements the HTTP API of the planning engine.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/planva/capline/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError writes a structured error response with an explicit status.
func writeError(w http.ResponseWriter, statusCode int, err error) {
	resp := ErrorResponse{
		Code:    string(errors.GetCode(err)),
		Message: err.Error(),
	}
	writeJSON(w, statusCode, resp)
}

// writeAppError maps application errors onto HTTP statuses via their error
// code.  Internal errors are masked so stack details never leak to clients.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()
	if status == http.StatusInternalServerError {
		writeError(w, status, errors.New(errors.ErrCodeInternal, "internal server error"))
		return
	}

	resp := ErrorResponse{Code: string(code), Message: err.Error()}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	writeJSON(w, status, resp)
}

// queryInt reads an integer query parameter, falling back when absent or
// malformed.
func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
