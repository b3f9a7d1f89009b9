package dto

import (
	"net/http"

	"github.com/shipping/backend/internal/domain/shared"
)

// API error codes. Domain codes are passed through unchanged.
const (
	ErrCodeInternal       = "ERR_INTERNAL"
	ErrCodeBadRequest     = "ERR_BAD_REQUEST"
	ErrCodeValidation     = "ERR_VALIDATION"
	ErrCodeInvalidJSON    = "ERR_INVALID_JSON"
	ErrCodeNotFound       = "ERR_NOT_FOUND"
	ErrCodeRequestTooBig  = "ERR_REQUEST_TOO_LARGE"
	ErrCodeMaxConnections = "ERR_MAX_CONNECTIONS"
	ErrCodeUnavailable    = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:       http.StatusInternalServerError,
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeValidation:     http.StatusBadRequest,
	ErrCodeInvalidJSON:    http.StatusBadRequest,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeRequestTooBig:  http.StatusRequestEntityTooLarge,
	ErrCodeMaxConnections: http.StatusServiceUnavailable,
	ErrCodeUnavailable:    http.StatusServiceUnavailable,

	shared.CodeNotFound:          http.StatusNotFound,
	shared.CodeInvalidInput:      http.StatusBadRequest,
	shared.CodeInvalidState:      http.StatusUnprocessableEntity,
	shared.CodePersistence:       http.StatusInternalServerError,
	shared.CodeInconsistentState: http.StatusInternalServerError,
	shared.CodeSubscriberLagged:  http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
