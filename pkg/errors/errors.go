// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses
// and for classifying render failures.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeConflict      = 1003

	// Timeline load errors (1100-1199)
	CodeTimelineLoad      = 1100
	CodeTimelineNotFound  = 1101
	CodeTimelineMalformed = 1102
	CodeTimelineSchema    = 1103

	// Schedule invariant errors (1200-1299)
	CodeScheduleInvariant = 1200
	CodeEmptyElements     = 1201
	CodeAlignmentMismatch = 1202

	// Upstream service errors (1300-1399)
	CodeUpstreamService          = 1300
	CodeTextCompletionFailed     = 1301
	CodeImageGenerationFailed    = 1302
	CodeSpeechSynthesisFailed    = 1303
	CodeUpstreamRetriesExhausted = 1304
	CodeUpstreamInvalidPayload   = 1305
	CodeMediaDownloadFailed      = 1306

	// Render errors (1400-1499)
	CodeRenderFailed         = 1400
	CodeFfmpegMissing        = 1401
	CodeEncodeFailed         = 1402
	CodeCompositionNotFound  = 1403
	CodeSceneDescriptorError = 1404

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502
	CodeUploadFailed   = 1503
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code int, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetDetail extracts detail from error, empty when not an AppError
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}

// inRange walks the whole chain so a LoadError wrapping a ScheduleInvariantError
// answers true for both categories.
func inRange(err error, lo, hi int) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Code >= lo && appErr.Code <= hi {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsLoadError reports whether err is a timeline load failure.
func IsLoadError(err error) bool {
	return inRange(err, 1100, 1199)
}

// IsScheduleInvariantError reports whether err is a schedule invariant violation.
func IsScheduleInvariantError(err error) bool {
	return inRange(err, 1200, 1299)
}

// IsUpstreamServiceError reports whether err came from an external content service.
func IsUpstreamServiceError(err error) bool {
	return inRange(err, 1300, 1399)
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")

	// Timeline
	ErrTimelineNotFound = New(CodeTimelineNotFound, "Timeline not found")
	ErrEmptyElements    = New(CodeEmptyElements, "Timeline has no background elements")

	// Upstream
	ErrNoCompletionContent = New(CodeTextCompletionFailed, "No content in completion response")

	// Render
	ErrFfmpegMissing       = New(CodeFfmpegMissing, "ffmpeg not found")
	ErrCompositionNotFound = New(CodeCompositionNotFound, "Composition not found")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")
)
