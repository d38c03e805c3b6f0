package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/avelane/storefront-session/pkg/errors"
)

// BackendErrorResponse mirrors the error envelope returned by the commerce
// backend. It is used to parse structured error bodies from failed calls.
type BackendErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the response body matches the backend's
// error envelope, the code and message are preserved. Otherwise a generic
// error is returned with the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, endpoint string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", endpoint, resp.StatusCode, err)
	}

	// Try to parse the structured error envelope.
	var backend BackendErrorResponse
	if json.Unmarshal(bodyBytes, &backend) == nil && backend.Error != nil {
		return mapBackendError(resp.StatusCode, backend.Error.Code, backend.Error.Message, endpoint)
	}

	// Fallback: unstructured error body.
	return mapBackendError(resp.StatusCode, "", string(bodyBytes), endpoint)
}

// mapBackendError translates the backend's HTTP status code and error code
// into an AppError that preserves the error semantics. A 401 always maps to
// a session-expired error so that the session manager can apply its uniform
// teardown, regardless of the backend's own error code.
func mapBackendError(status int, code, message, endpoint string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", endpoint, message)

	switch {
	case status == http.StatusUnauthorized:
		return apperrors.SessionExpired(qualifiedMsg)
	case status == http.StatusNotFound:
		return apperrors.NotFound(endpoint, message)
	case status == http.StatusBadRequest:
		// Older backend routes report duplicate writes as a generic 400
		// instead of a 409. Surface those as conflicts so idempotent
		// retries are not treated as failures.
		if isDuplicateWrite(code, message) {
			return apperrors.Conflict(qualifiedMsg)
		}
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusUnprocessableEntity:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  http.StatusUnprocessableEntity,
			Err:     apperrors.ErrUnavailable,
		}
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", endpoint, status, code, message)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// isDuplicateWrite reports whether a backend error body describes an
// already-applied write, such as adding a product that is already in the
// wishlist.
func isDuplicateWrite(code, message string) bool {
	if strings.EqualFold(code, "ALREADY_EXISTS") || strings.EqualFold(code, "DUPLICATE") {
		return true
	}
	msg := strings.ToLower(message)
	return strings.Contains(msg, "already in") || strings.Contains(msg, "already exists")
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors (e.g., validation) are not retried.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
