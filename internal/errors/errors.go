package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Detail  string // Offending value, e.g. the placeholder name for MISSING_COLUMN
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code of a wrapped
// AppError is preserved.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Detail:  appErr.Detail,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode wraps err under the given code, keeping it as the cause
func WithCode(code string, err error, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// IsAppError checks if an error is, or wraps, an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code of the outermost AppError in the chain,
// otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// GetDetail returns the detail of the outermost AppError in the chain
func GetDetail(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeFileNotFound      = "FILE_NOT_FOUND"
	CodeParseError        = "PARSE_ERROR"
	CodeMissingColumn     = "MISSING_COLUMN"
	CodeAuthentication    = "AUTHENTICATION"
	CodeAPIError          = "API_ERROR"
	CodeNetworkError      = "NETWORK_ERROR"
	CodeWriteError        = "WRITE_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// UnsupportedFormat reports an extension outside supported
func UnsupportedFormat(path, ext string, supported []string) *AppError {
	return &AppError{
		Code:    CodeUnsupportedFormat,
		Message: fmt.Sprintf("unsupported file format %q for %s (expected one of %s)", ext, path, strings.Join(supported, ", ")),
		Detail:  ext,
	}
}

func FileNotFound(path string) *AppError {
	return &AppError{
		Code:    CodeFileNotFound,
		Message: fmt.Sprintf("file not found: %s", path),
		Detail:  path,
	}
}

func ParseError(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeParseError,
		Message: fmt.Sprintf("failed to parse %s", path),
		Detail:  path,
		Cause:   cause,
	}
}

func MissingColumn(placeholder string) *AppError {
	return &AppError{
		Code:    CodeMissingColumn,
		Message: fmt.Sprintf("placeholder {%s} does not match any column", placeholder),
		Detail:  placeholder,
	}
}

func Authentication(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeAuthentication,
		Message: message,
		Cause:   cause,
	}
}

func APIError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeAPIError,
		Message: message,
		Cause:   cause,
	}
}

func NetworkError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeNetworkError,
		Message: message,
		Cause:   cause,
	}
}

func WriteError(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeWriteError,
		Message: fmt.Sprintf("failed to write %s", path),
		Detail:  path,
		Cause:   cause,
	}
}

// hasCode reports whether any AppError in the chain carries code
func hasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func IsUnsupportedFormat(err error) bool { return hasCode(err, CodeUnsupportedFormat) }
func IsFileNotFound(err error) bool      { return hasCode(err, CodeFileNotFound) }
func IsParseError(err error) bool        { return hasCode(err, CodeParseError) }
func IsMissingColumn(err error) bool     { return hasCode(err, CodeMissingColumn) }
func IsAuthentication(err error) bool    { return hasCode(err, CodeAuthentication) }
func IsAPIError(err error) bool          { return hasCode(err, CodeAPIError) }
func IsNetworkError(err error) bool      { return hasCode(err, CodeNetworkError) }
func IsWriteError(err error) bool        { return hasCode(err, CodeWriteError) }
