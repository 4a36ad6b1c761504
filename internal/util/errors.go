package util

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrorCode is the caller-facing failure category.
type ErrorCode string

const (
	CodeNotAuthenticated ErrorCode = "NotAuthenticated"
	CodeUnauthorized     ErrorCode = "Unauthorized"
	CodeNotFound         ErrorCode = "NotFound"
	CodeValidationFailed ErrorCode = "ValidationFailed"
	CodeConflictIgnored  ErrorCode = "ConflictIgnored"
	CodeUnexpected       ErrorCode = "Unexpected"
)

type AppError struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Code)
	case e.Op != "":
		return fmt.Sprintf("%s (%s)", e.Op, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return string(e.Code)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches a bare *AppError{Code: ...} by code, so errors.Is can test categories.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Op == "" && t.Message == ""
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &AppError{Code: code, Op: op, Message: message, Cause: cause}
}

func NotAuthenticated(op string) error {
	return NewError(CodeNotAuthenticated, op, "login required", nil)
}

func Unauthorized(op, message string) error {
	return NewError(CodeUnauthorized, op, message, nil)
}

func NotFound(op, message string) error {
	return NewError(CodeNotFound, op, message, nil)
}

func Validation(op, message string) error {
	return NewError(CodeValidationFailed, op, message, nil)
}

// CodeOf returns the code of the first AppError in err's chain, or Unexpected.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnexpected
}

// IsDuplicateKey recognises unique-constraint violations across the supported drivers.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key")
}

// MapError classifies store failures into the error taxonomy.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NewError(CodeNotFound, op, "record not found", err)
	case IsDuplicateKey(err):
		return NewError(CodeConflictIgnored, op, "already exists", err)
	}
	return NewError(CodeUnexpected, op, "", err)
}
