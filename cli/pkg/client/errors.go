package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gophercloud/gophercloud/v2"
)

// SDKError is implemented by every error returned by the remote API
type SDKError interface {
	error
	Message() string
}

// HTTPError is a non-2xx API response
type HTTPError struct {
	StatusCode int
	Operation  string // e.g. "create tracker", "get certificate"
	Code       string // service error code such as CTS.0003
	Detail     string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s failed: HTTP %d", e.Operation, e.StatusCode)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Message returns the service supplied detail, or the status text when the
// body carried none.
func (e *HTTPError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.StatusCode)
}

// IsBadRequest checks if an error is an HTTP 400 from the API. The trace
// service answers 400 when a tracker already exists.
func IsBadRequest(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// IsNotFound checks if an error is an HTTP 404 from the API
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict checks if an error is an HTTP 409 from the API
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

// IsUnauthorized checks if an error is an HTTP 401 from the API
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

func hasStatus(err error, status int) bool {
	var e *HTTPError
	return errors.As(err, &e) && e.StatusCode == status
}

// newHTTPError builds an HTTPError from a response body. Services answer
// either {"error_code": "...", "error_msg": "..."} or
// {"error": {"code": ..., "message": "..."}}; anything else is kept raw.
func newHTTPError(operation string, status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Operation: operation}

	var flat struct {
		ErrorCode string `json:"error_code"`
		ErrorMsg  string `json:"error_msg"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && (flat.ErrorCode != "" || flat.ErrorMsg != "") {
		e.Code = flat.ErrorCode
		e.Detail = flat.ErrorMsg
		return e
	}

	var nested struct {
		Error struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		e.Code = strings.Trim(string(nested.Error.Code), `"`)
		e.Detail = nested.Error.Message
		return e
	}

	e.Detail = strings.TrimSpace(string(body))
	return e
}

// wrapError maps an unexpected response code reported by gophercloud to an
// HTTPError; other failures are wrapped with the operation name.
func wrapError(operation string, err error) error {
	var codeErr gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &codeErr) {
		return newHTTPError(operation, codeErr.Actual, codeErr.Body)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}
