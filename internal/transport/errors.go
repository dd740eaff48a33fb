package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
)

// ErrorType categorizes backoffice failures for retry classification.
type ErrorType string

const (
	// ErrorTypeTimeout indicates a deadline was exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates throttling by the backoffice (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates connectivity issues (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeUnavailable indicates a 5xx reply (retryable).
	ErrorTypeUnavailable ErrorType = "service_unavailable"

	// ErrorTypeValidation indicates the backoffice rejected the input.
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeAuth indicates missing or invalid credentials.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypePermission indicates the operator may not perform the call.
	ErrorTypePermission ErrorType = "permission_denied"

	// ErrorTypeNotFound indicates a referenced resource does not exist.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeInvalidResponse indicates an undecodable reply.
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// ErrorTypeCircuitOpen indicates the local breaker rejected the call
	// after repeated transient failures (retryable later).
	ErrorTypeCircuitOpen ErrorType = "circuit_open"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// ErrRateLimitExceeded is returned by the local limiter when it cannot
// admit a request before the context deadline.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ServiceError is a structured backoffice failure.
type ServiceError struct {
	Operation  Operation `json:"operation"`
	Type       ErrorType `json:"type"`
	StatusCode int       `json:"status_code"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`

	// RetryAfter is the Retry-After header value in seconds, if any.
	RetryAfter int `json:"retry_after"`
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backoffice %s failed (%s, status %d): %s", e.Operation, e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backoffice %s failed (%s): %s", e.Operation, e.Type, e.Message)
}

// IsRetryable reports whether the failure is transient.
func (e *ServiceError) IsRetryable() bool { return e.Type.Retryable() }

// Retryable reports whether failures of this type are transient.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeUnavailable, ErrorTypeCircuitOpen:
		return true
	default:
		return false
	}
}

// NewHTTPError builds a ServiceError from a non-2xx reply.
func NewHTTPError(op Operation, status int, retryAfter string, body []byte) *ServiceError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	e := &ServiceError{Operation: op, Type: classifyStatus(status), StatusCode: status, Message: msg}
	if s, err := strconv.Atoi(retryAfter); err == nil && s > 0 {
		e.RetryAfter = s
	}
	return e
}

func classifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case status == http.StatusUnauthorized:
		return ErrorTypeAuth
	case status == http.StatusForbidden:
		return ErrorTypePermission
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status >= 500:
		return ErrorTypeUnavailable
	case status >= 400:
		return ErrorTypeValidation
	default:
		return ErrorTypeUnknown
	}
}

func classifyGraphQLCode(code string) ErrorType {
	switch strings.ToUpper(code) {
	case "BAD_USER_INPUT", "GRAPHQL_VALIDATION_FAILED":
		return ErrorTypeValidation
	case "UNAUTHENTICATED":
		return ErrorTypeAuth
	case "FORBIDDEN":
		return ErrorTypePermission
	case "NOT_FOUND":
		return ErrorTypeNotFound
	case "RATE_LIMITED":
		return ErrorTypeRateLimit
	case "INTERNAL_SERVER_ERROR", "SERVICE_UNAVAILABLE":
		return ErrorTypeUnavailable
	default:
		return ErrorTypeUnknown
	}
}

// ClassifyError maps any error returned through the pipeline to an
// ErrorType. Typed errors win over sentinels, which win over
// network-level inspection.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se.Type
	}

	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrorTypeRateLimit
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrorTypeNetwork
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return ErrorTypeNetwork
	}

	return ErrorTypeUnknown
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool { return ClassifyError(err).Retryable() }
