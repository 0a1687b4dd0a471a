package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"media-filter/internal/export"
	"media-filter/internal/logging"
	"media-filter/internal/mediatypes"
	"media-filter/internal/session"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

var (
	errUploadTooLarge   = errors.New("upload too large")
	errSessionNotFound  = errors.New("session not found")
	errHandleNotFound   = errors.New("handle not found or released")
	errMalformedRequest = errors.New("malformed request body")
)

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, mediatypes.ErrNoFileProvided),
		errors.Is(err, mediatypes.ErrUnsupportedMediaType),
		errors.Is(err, mediatypes.ErrInvalidParameter),
		errors.Is(err, errMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, errSessionNotFound), errors.Is(err, errHandleNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, export.ErrExportNotReady), errors.Is(err, session.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with the status it maps to. Unclassified errors are
// logged and reported without their details.
func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError && !errors.Is(err, mediatypes.ErrProcessingFailure) {
		logging.Error("request failed: %v", err)
		message = "internal server error"
	}
	writeJSONError(w, message, status)
}

// valueGetter returns request values by name: JSON body fields for JSON
// requests, form values otherwise. JSON numbers and strings are both accepted.
func valueGetter(r *http.Request) (func(string) string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedRequest, err)
		}
		return func(key string) string {
			switch v := body[key].(type) {
			case nil:
				return ""
			case string:
				return v
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			default:
				// Anything else is not a number and fails ParseValue
				return fmt.Sprint(v)
			}
		}, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	return r.Form.Get, nil
}
