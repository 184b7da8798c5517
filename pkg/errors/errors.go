package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is a typed domain error. Type is the legacy envelope error type
// string ("Query", "Database", "Encryption", "Internal") kept for wire
// compatibility with existing clients.
type AppError struct {
	Code    Code   `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, typ, message string) error {
	return &AppError{Code: code, Type: typ, Message: message}
}

func Wrap(code Code, typ, message string, cause error) error {
	return &AppError{Code: code, Type: typ, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, "Query", msg)
}

func Unprocessable(msg string) error {
	return New(CodeUnprocessable, "Query", msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, "Database", msg)
}

func AlreadyExists(msg string) error {
	return New(CodeAlreadyExists, "Query", msg)
}

func Encryption(msg string, cause error) error {
	return Wrap(CodeEncryption, "Encryption", msg, cause)
}

func Internal(msg string) error {
	return New(CodeInternal, "Internal", msg)
}

// AsAppError unwraps err to an *AppError, or wraps unknown errors as internal.
func AsAppError(err error) *AppError {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae
	}
	return &AppError{Code: CodeInternal, Type: "Internal", Message: "internal server error", Cause: err}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var ae *AppError
	return stderrors.As(err, &ae) && ae.Code == code
}
