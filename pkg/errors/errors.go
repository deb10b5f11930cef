package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeProfileError = "PROFILE_ERROR"
	CodeValidation   = "VALIDATION_ERROR"
	CodeTransport    = "TRANSPORT_ERROR"
	CodeApplication  = "APPLICATION_ERROR"
	CodeMalformed    = "MALFORMED_RESPONSE"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeCache        = "CACHE_ERROR"
	CodeService      = "SERVICE_ERROR"
)

type ProfileError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *ProfileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProfileError) Unwrap() error {
	return e.Cause
}

// HTTPStatus is promoted to every specialised error below.
func (e *ProfileError) HTTPStatus() int {
	return e.StatusCode
}

func (e *ProfileError) detail() string {
	return e.Message
}

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	*ProfileError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		ProfileError: &ProfileError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	*ProfileError
	URL string
}

func NewTransportError(url string, cause error) *TransportError {
	return &TransportError{
		ProfileError: &ProfileError{
			Message: "request failed",
			Code:    CodeTransport,
			Context: map[string]any{
				"url": url,
			},
			Cause: cause,
		},
		URL: url,
	}
}

// ApplicationError is a completed response that reports failure. Detail holds
// the server supplied "detail" field, empty when the body carried none.
type ApplicationError struct {
	*ProfileError
	Detail string
}

func NewApplicationError(statusCode int, detail string, context map[string]any) *ApplicationError {
	message := detail
	if message == "" {
		message = fmt.Sprintf("application error: %d", statusCode)
	}
	return &ApplicationError{
		ProfileError: &ProfileError{
			Message:    message,
			Code:       CodeApplication,
			StatusCode: statusCode,
			Context:    context,
		},
		Detail: detail,
	}
}

// MalformedResponseError is a response whose body could not be read as the
// expected JSON. It is reported like a transport failure, whatever its status.
type MalformedResponseError struct {
	*ProfileError
	URL string
}

func NewMalformedResponseError(url string, statusCode int, cause error) *MalformedResponseError {
	return &MalformedResponseError{
		ProfileError: &ProfileError{
			Message:    fmt.Sprintf("malformed response: %d", statusCode),
			Code:       CodeMalformed,
			StatusCode: statusCode,
			Context: map[string]any{
				"url": url,
			},
			Cause: cause,
		},
		URL: url,
	}
}

// UpstreamError wraps failures talking to the Roblox web APIs.
type UpstreamError struct {
	*ProfileError
	URL string
}

func NewUpstreamError(message, url string, statusCode int, cause error) *UpstreamError {
	return &UpstreamError{
		ProfileError: &ProfileError{
			Message:    message,
			Code:       CodeUpstream,
			StatusCode: statusCode,
			Context: map[string]any{
				"url": url,
			},
			Cause: cause,
		},
		URL: url,
	}
}

type NotFoundError struct {
	*ProfileError
	Query string
}

func NewNotFoundError(message, query string) *NotFoundError {
	return &NotFoundError{
		ProfileError: &ProfileError{
			Message:    message,
			Code:       CodeNotFound,
			StatusCode: http.StatusNotFound,
			Context: map[string]any{
				"query": query,
			},
		},
		Query: query,
	}
}

type CacheError struct {
	*ProfileError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		ProfileError: &ProfileError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*ProfileError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		ProfileError: &ProfileError{
			Message:    message,
			Code:       CodeService,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// StatusCode reports the HTTP status carried by err, or 500 when err carries
// none.
func StatusCode(err error) int {
	var carrier interface{ HTTPStatus() int }
	if stderrors.As(err, &carrier) && carrier.HTTPStatus() != 0 {
		return carrier.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Detail returns the client-facing message carried by err, or "" when err is
// not one of the errors above.
func Detail(err error) string {
	var carrier interface{ detail() string }
	if stderrors.As(err, &carrier) {
		return carrier.detail()
	}
	return ""
}
