//
//
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/barbamx/tello-drone-pilot/internal/adapter"
	"github.com/barbamx/tello-drone-pilot/internal/movement"
	"github.com/barbamx/tello-drone-pilot/internal/session"
)

// ErrBadRequest marks a malformed path or body.
var ErrBadRequest = errors.New("BAD_REQUEST")

// APIError carries an explicit status and code.
type APIError struct {
	Code       string
	Message    string
	Details    interface{}
	StatusCode int
}

// NewAPIError creates an APIError.
func NewAPIError(code, message string, statusCode int, details interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details, StatusCode: statusCode}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// errorMapping is checked in order; the first kind that matches wins.
var errorMapping = []struct {
	kind    error
	code    string
	status  int
	message string
}{
	{session.ErrShuttingDown, "SHUTTING_DOWN", http.StatusConflict, "Session is shutting down"},
	{session.ErrNotReady, "NOT_READY", http.StatusConflict, "Session handshake has not completed"},
	{movement.ErrUnknownDirection, "INVALID_RANGE", http.StatusBadRequest, "Unknown direction"},
	{movement.ErrInvalidDistance, "INVALID_RANGE", http.StatusBadRequest, "Distance outside 20-500 cm"},
	{adapter.ErrRejected, "REJECTED", http.StatusUnprocessableEntity, "Vehicle rejected the command"},
	{adapter.ErrTimeout, "TIMEOUT", http.StatusGatewayTimeout, "Vehicle did not reply in time"},
	{adapter.ErrParseFailure, "PARSE_FAILURE", http.StatusBadGateway, "Vehicle reply could not be parsed"},
	{adapter.ErrTransportFailure, "TRANSPORT_FAILURE", http.StatusServiceUnavailable, "Command channel unavailable"},
	{ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, "Malformed or missing required parameter"},
}

// ToAPIError converts an error to a status code and JSON envelope.
func ToAPIError(err error) (int, []byte) {
	if err == nil {
		return http.StatusOK, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, marshalErrorResponse(apiErr.Code, apiErr.Message, apiErr.Details)
	}

	for _, m := range errorMapping {
		if errors.Is(err, m.kind) {
			return m.status, marshalErrorResponse(m.code, m.message, map[string]interface{}{"original": err.Error()})
		}
	}

	return http.StatusInternalServerError, marshalErrorResponse("INTERNAL", "Internal server error", map[string]interface{}{
		"original": err.Error(),
	})
}

func marshalErrorResponse(code, message string, details interface{}) []byte {
	data, err := json.Marshal(ErrorResponse(code, message, details))
	if err != nil {
		data, _ = json.Marshal(ErrorResponse("INTERNAL", "Failed to marshal error response", nil))
	}
	return data
}
