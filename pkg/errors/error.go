// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters and configuration
//   - Data/Resource errors (200-299): Empty series, nothing to write, query failures
//   - Source errors (300-399): Terminal bridge and provider connection errors
//   - Market data errors (700-799): Market data fetching, writing and parsing errors
//
// Besides the coded Error, three typed errors describe the extraction failures a driver is
// expected to handle: ConnectionError, EmptySeriesError and NoDataError.
//
// Usage:
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported timeframe: %s", value)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to export parquet", originalErr)
//
//	// Check error kind
//	if errors.IsEmptySeriesError(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error.
// The typed errors of this package report their own code.
// Returns ErrCodeUnknown for any other error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return ErrCodeSourceConnectionFailed
	}

	var emptyErr *EmptySeriesError
	if errors.As(err, &emptyErr) {
		return ErrCodeEmptySeries
	}

	var noDataErr *NoDataError
	if errors.As(err, &noDataErr) {
		return ErrCodeNoDataToWrite
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// ConnectionError is returned when a source cannot be reached or initialized.
type ConnectionError struct {
	Source string // Source name, e.g. terminal
	Reason string // Human-readable reason
	Cause  error
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(source, reason string, cause error) *ConnectionError {
	return &ConnectionError{
		Source: source,
		Reason: reason,
		Cause:  cause,
	}
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection to %s failed: %s: %v", e.Source, e.Reason, e.Cause)
	}

	return fmt.Sprintf("connection to %s failed: %s", e.Source, e.Reason)
}

// Unwrap returns the underlying error cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsConnectionError checks if an error is a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError

	return errors.As(err, &connErr)
}

// EmptySeriesError is returned when a symbol/timeframe/window request yields no bars.
type EmptySeriesError struct {
	Symbol string
	// Timeframe is the display label, e.g. M15.
	Timeframe string
	// TimeframeCode is the numeric timeframe code.
	TimeframeCode int32
	Start         time.Time
	End           time.Time
}

// NewEmptySeriesError creates a new EmptySeriesError.
func NewEmptySeriesError(symbol string, timeframe string, timeframeCode int32, start, end time.Time) *EmptySeriesError {
	return &EmptySeriesError{
		Symbol:        symbol,
		Timeframe:     timeframe,
		TimeframeCode: timeframeCode,
		Start:         start,
		End:           end,
	}
}

// Error implements the error interface.
func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("no data was found for %s with timeframe %s (%d). start date: %s, end date: %s",
		e.Symbol,
		e.Timeframe,
		e.TimeframeCode,
		e.Start.Format(time.RFC3339),
		e.End.Format(time.RFC3339),
	)
}

// IsEmptySeriesError checks if an error is an EmptySeriesError.
func IsEmptySeriesError(err error) bool {
	var emptyErr *EmptySeriesError

	return errors.As(err, &emptyErr)
}

// NoDataError is returned when a dataset is persisted before any successful collection.
type NoDataError struct {
	Message string
}

// NewNoDataError creates a new NoDataError.
func NewNoDataError(message string) *NoDataError {
	return &NoDataError{Message: message}
}

// Error implements the error interface.
func (e *NoDataError) Error() string {
	return e.Message
}

// IsNoDataError checks if an error is a NoDataError.
func IsNoDataError(err error) bool {
	var noDataErr *NoDataError

	return errors.As(err, &noDataErr)
}
