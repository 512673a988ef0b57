package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Environment evaluation errors
	ErrEnvUnknown ErrorCode = "ENV_UNKNOWN"
	ErrEnvCycle   ErrorCode = "ENV_CYCLE"
	ErrEnvInvalid ErrorCode = "ENV_INVALID"

	// Path resolution errors
	ErrConditionInvalid ErrorCode = "CONDITION_INVALID"
	ErrIndecision       ErrorCode = "RESOLVE_INDECISION"
	ErrEnvVarUnset      ErrorCode = "ENV_VAR_UNSET"

	// Hoard errors
	ErrHoardNotFound ErrorCode = "HOARD_NOT_FOUND"
	ErrHoardInvalid  ErrorCode = "HOARD_INVALID"

	// History / consistency errors
	ErrPathsDiverged ErrorCode = "PATHS_DIVERGED"
	ErrHistoryAccess ErrorCode = "HISTORY_ACCESS"

	// Encryption errors
	ErrEncrypt ErrorCode = "ENCRYPT"
	ErrDecrypt ErrorCode = "DECRYPT"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileCopy     ErrorCode = "FILE_COPY"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
	ErrTypeMismatch ErrorCode = "TYPE_MISMATCH"
)

// HoardError represents a structured error with code and details
type HoardError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *HoardError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *HoardError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *HoardError) Is(target error) bool {
	var targetErr *HoardError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new HoardError with the given code and message
func New(code ErrorCode, message string) *HoardError {
	return &HoardError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new HoardError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *HoardError {
	return &HoardError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a HoardError
func Wrap(err error, code ErrorCode, message string) *HoardError {
	if err == nil {
		return nil
	}
	return &HoardError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *HoardError {
	if err == nil {
		return nil
	}
	return &HoardError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *HoardError) WithDetail(key string, value interface{}) *HoardError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *HoardError) WithDetails(details map[string]interface{}) *HoardError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var hoardErr *HoardError
	if errors.As(err, &hoardErr) {
		return hoardErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a HoardError
func GetErrorCode(err error) ErrorCode {
	var hoardErr *HoardError
	if errors.As(err, &hoardErr) {
		return hoardErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a HoardError
func GetErrorDetails(err error) map[string]interface{} {
	var hoardErr *HoardError
	if errors.As(err, &hoardErr) {
		return hoardErr.Details
	}
	return nil
}
