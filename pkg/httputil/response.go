package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response body is kept on an *Error
const maxErrorBody = 4096

// decodeResponse classifies resp and decodes its body into dest on success
func decodeResponse(resp *http.Response, service, op string, dest interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Service:    service,
			Op:         op,
			StatusCode: resp.StatusCode,
			Kind:       KindForStatus(resp.StatusCode),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{
			Service:    service,
			Op:         op,
			StatusCode: resp.StatusCode,
			Kind:       KindTransport,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, map[string]string{
		"error": message,
	})
}
