package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// errorResponse is the body every non-2xx endpoint returns: a stable
// machine-readable code plus a human-readable message.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes data as the response body with the given status.
// The Content-Type header must be set before the status line goes out.
// Encoding errors are dropped; the status is already committed and
// there is nothing useful left to tell the client.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError sends an errorResponse with the given status, code, and
// message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{Error: code, Message: message})
}

// ParseJSON decodes the request body into v. The request must declare
// a JSON content type, and unknown fields in the body are rejected so
// that a misspelled key fails loudly instead of being silently
// ignored. The returned error text is safe to echo to the client.
func ParseJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return errors.New("Content-Type must be application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("Request body must be valid JSON")
	}
	return nil
}
