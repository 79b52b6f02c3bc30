package models

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies an AppError and decides its HTTP status.
type ErrorKind string

const (
	KindValidation      ErrorKind = "VALIDATION_ERROR"
	KindUnauthenticated ErrorKind = "UNAUTHENTICATED"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindInternal        ErrorKind = "INTERNAL_ERROR"
)

// Stable machine-readable codes for failures callers may want to branch on.
const (
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeImageRequired      = "IMAGE_REQUIRED"
	CodeRateLimited        = "RATE_LIMITED"
)

// FieldError describes one violated validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Kind             ErrorKind
	Code             string
	Message          string
	ValidationErrors []FieldError
	Err              error
	status           int
	stack            []byte
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind onto an HTTP status. Unknown kinds are 500.
func (e *AppError) StatusCode() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation:
		return fiber.StatusUnprocessableEntity
	case KindUnauthenticated:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// WithCode returns e with a machine-readable code attached.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// Predefined error constructors
func NewValidationError(message string, fields ...FieldError) *AppError {
	return &AppError{
		Kind:             KindValidation,
		Code:             string(KindValidation),
		Message:          message,
		ValidationErrors: fields,
	}
}

func NewUnauthenticatedError(message string) *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Code:    string(KindUnauthenticated),
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Kind:    KindForbidden,
		Code:    string(KindForbidden),
		Message: message,
	}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    string(KindNotFound),
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    string(KindInternal),
		Message: "Internal server error",
		Err:     err,
		stack:   debug.Stack(),
	}
}

// AsAppError classifies any error. Errors that are not already an AppError
// become internal errors wrapping the original.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	return NewInternalError(err)
}

func fromFiberError(fe *fiber.Error) *AppError {
	switch fe.Code {
	case fiber.StatusUnprocessableEntity, fiber.StatusBadRequest:
		return NewValidationError(fe.Message)
	case fiber.StatusUnauthorized:
		return NewUnauthenticatedError(fe.Message)
	case fiber.StatusForbidden:
		return NewForbiddenError(fe.Message)
	case fiber.StatusNotFound:
		return NewNotFoundError(fe.Message)
	case fiber.StatusTooManyRequests:
		return &AppError{Kind: KindInternal, Code: CodeRateLimited, Message: fe.Message, status: fe.Code}
	default:
		return &AppError{Kind: KindInternal, Code: string(KindInternal), Message: fe.Message, status: fe.Code}
	}
}

// ErrorBody is the "error" member of the response envelope.
type ErrorBody struct {
	Message          string       `json:"message"`
	StatusCode       int          `json:"statusCode"`
	Code             string       `json:"code,omitempty"`
	ValidationErrors []FieldError `json:"validationErrors,omitempty"`
	Stack            string       `json:"stack,omitempty"`
}

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// NewErrorResponse builds the envelope for err. Stack detail is only attached
// when includeStack is set.
func NewErrorResponse(err error, includeStack bool) ErrorResponse {
	appErr := AsAppError(err)
	body := ErrorBody{
		Message:          appErr.Message,
		StatusCode:       appErr.StatusCode(),
		Code:             appErr.Code,
		ValidationErrors: appErr.ValidationErrors,
	}
	if includeStack {
		if appErr.Err != nil {
			body.Stack = appErr.Err.Error() + "\n" + string(appErr.stack)
		} else if len(appErr.stack) > 0 {
			body.Stack = string(appErr.stack)
		}
	}
	return ErrorResponse{Success: false, Error: body}
}

var production atomic.Bool

// SetProduction switches stack detail in error responses off (true) or on.
// The server sets it from the loaded configuration at startup.
func SetProduction(on bool) {
	production.Store(on)
}

// RespondWithError writes the error envelope with the status derived from err.
func RespondWithError(c *fiber.Ctx, err error) error {
	resp := NewErrorResponse(err, !production.Load())
	return c.Status(resp.Error.StatusCode).JSON(resp)
}
