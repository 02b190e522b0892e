package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for each error type
type ErrorCode string

const (
	// General errors
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// File processing errors
	ErrCodeInvalidFile       ErrorCode = "INVALID_FILE"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeFileParseError    ErrorCode = "FILE_PARSE_ERROR"
	ErrCodeColumnNotFound    ErrorCode = "COLUMN_NOT_FOUND"

	// Refinery errors
	ErrCodeRefineryNotFound ErrorCode = "REFINERY_NOT_FOUND"
	ErrCodeInvalidLexicon   ErrorCode = "INVALID_LEXICON"

	// Infrastructure errors
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeQueueError     ErrorCode = "QUEUE_ERROR"
	ErrCodeCacheError     ErrorCode = "CACHE_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds additional context to the error
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}

func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message)
}

func InvalidConfig(message string) *AppError {
	return New(ErrCodeInvalidConfig, message)
}

// File processing errors

func InvalidFile(message string) *AppError {
	return New(ErrCodeInvalidFile, message)
}

func UnsupportedFormat(format string) *AppError {
	return New(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported file format: %s", format)).
		WithDetails("format", format)
}

func FileParseError(err error, filename string) *AppError {
	return Wrap(err, ErrCodeFileParseError, fmt.Sprintf("failed to parse %s", filename)).
		WithDetails("file", filename)
}

func ColumnNotFound(column string, available []string) *AppError {
	return New(ErrCodeColumnNotFound, fmt.Sprintf("column %q not found", column)).
		WithDetails("column", column).
		WithDetails("available", available)
}

// Refinery errors

func RefineryNotFound(identifier string, available []string) *AppError {
	return New(ErrCodeRefineryNotFound,
		fmt.Sprintf("refinery '%s' not found. Available: %v", identifier, available)).
		WithDetails("refinery", identifier)
}

func InvalidLexicon(err error, source string) *AppError {
	return Wrap(err, ErrCodeInvalidLexicon, "failed to load segmenter lexicon").
		WithDetails("source", source)
}

// Infrastructure errors

func DatabaseError(err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, "database operation failed")
}

func RecordNotFound(resource string) *AppError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("%s not found", resource))
}

func QueueError(err error, message string) *AppError {
	return Wrap(err, ErrCodeQueueError, message)
}

func CacheError(err error, message string) *AppError {
	return Wrap(err, ErrCodeCacheError, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}
