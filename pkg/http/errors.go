package http

import (
	"fmt"
	"net/http"
)

// Error codes returned in AppError.Code.
const (
	CodeBadRequest  = "ERR_BAD_REQUEST"
	CodeNotFound    = "ERR_NOT_FOUND"
	CodeConflict    = "ERR_CONFLICT"
	CodeUnavailable = "ERR_UNAVAILABLE"
	CodeInternal    = "ERR_INTERNAL"
)

// AppError is an error that knows its HTTP status. Handlers return it through
// AppErrorResponse; Err is kept for logs and errors.Is, never serialized.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// WithParam attaches a request value that explains the failure.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func statusError(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Status: status}
}

func BadRequestError(msg string) *AppError {
	return statusError(http.StatusBadRequest, CodeBadRequest, msg)
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusNotFound, CodeNotFound, fmt.Sprintf(format, a...))
}

func ConflictErrorf(format string, a ...interface{}) *AppError {
	return statusError(http.StatusConflict, CodeConflict, fmt.Sprintf(format, a...))
}

// ServiceUnavailableError marks a backend that is disabled or unreachable.
func ServiceUnavailableError(msg string) *AppError {
	return statusError(http.StatusServiceUnavailable, CodeUnavailable, msg)
}

func InternalError(msg string) *AppError {
	return statusError(http.StatusInternalServerError, CodeInternal, msg)
}
