package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Error bodies beyond this size are truncated before decoding.
const maxErrorBody = 1 << 20

// Statuses whose meaning carries over unchanged from a downstream service.
var passThrough = map[int]error{
	http.StatusBadRequest:   apperrors.ErrInvalidInput,
	http.StatusUnauthorized: apperrors.ErrUnauthorized,
	http.StatusNotFound:     apperrors.ErrNotFound,
	http.StatusConflict:     apperrors.ErrConflict,
}

// ParseResponseError drains and closes a non-2xx response and returns it
// as an *apperrors.AppError. A body in the {"error":{"code","message"}}
// envelope supplies the message; any other body is used verbatim. 5xx
// statuses all become 503 SERVICE_UNAVAILABLE.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var env struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	code, msg := "", string(body)
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		code, msg = env.Error.Code, env.Error.Message
	}
	msg = serviceName + ": " + msg

	status := resp.StatusCode
	if status >= http.StatusInternalServerError {
		return &apperrors.AppError{
			Code:    apperrors.CodeUnavailable,
			Message: fmt.Sprintf("%s unavailable (status %d)", serviceName, status),
			Status:  http.StatusServiceUnavailable,
			Err:     fmt.Errorf("%w: %s", apperrors.ErrServiceUnavail, msg),
		}
	}
	if sentinel, ok := passThrough[status]; ok {
		appErr := apperrors.Classify(sentinel)
		return &apperrors.AppError{Code: appErr.Code, Message: msg, Status: status, Err: sentinel}
	}
	if code == "" {
		code = "UPSTREAM_ERROR"
	}
	return &apperrors.AppError{Code: code, Message: msg, Status: status}
}
