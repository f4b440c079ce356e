/**
 * Custom error types for the Extractext OCR pipeline
 *
 * Every failure that crosses the context boundary is reduced to a code plus a
 * message; the boundary only carries data, never Go error values.
 */

package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Orchestrator errors
	ErrorEngineBusy  ErrorCode = "ENGINE_BUSY"
	ErrorEngineInit  ErrorCode = "ENGINE_INIT"
	ErrorNoTextFound ErrorCode = "NO_TEXT_FOUND"
	ErrorRecognition ErrorCode = "RECOGNITION_FAILED"

	// Protocol errors
	ErrorTimeout   ErrorCode = "TIMEOUT"
	ErrorTransport ErrorCode = "TRANSPORT"

	// Page-side errors
	ErrorImageLoad ErrorCode = "IMAGE_LOAD"
	ErrorClipboard ErrorCode = "CLIPBOARD"
)

// PipelineError represents a structured pipeline error
type PipelineError struct {
	Code      ErrorCode
	Message   string
	RequestID string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the structured code from any error, or "" for plain errors.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsEngineBusy(err error) bool  { return Is(err, ErrorEngineBusy) }
func IsNoTextFound(err error) bool { return Is(err, ErrorNoTextFound) }
func IsTimeout(err error) bool     { return Is(err, ErrorTimeout) }
func IsTransport(err error) bool   { return Is(err, ErrorTransport) }

// FromCode rebuilds a coded error from its wire form on the receiving side.
func FromCode(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Factory functions for common errors

func NewEngineBusyError() *PipelineError {
	return &PipelineError{
		Code:      ErrorEngineBusy,
		Message:   "another recognition is already in flight",
		Timestamp: time.Now(),
	}
}

func NewEngineInitError(cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorEngineInit,
		Message:   "OCR engine could not be acquired",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewNoTextFoundError() *PipelineError {
	return &PipelineError{
		Code:      ErrorNoTextFound,
		Message:   "no text found in image",
		Timestamp: time.Now(),
	}
}

func NewRecognitionError(cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorRecognition,
		Message:   "OCR engine failed to recognize image",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewTimeoutError(requestID string, timeout time.Duration) *PipelineError {
	return &PipelineError{
		Code:      ErrorTimeout,
		Message:   fmt.Sprintf("no reply within %v", timeout),
		RequestID: requestID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": timeout.String(),
		},
	}
}

func NewTransportError(target string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorTransport,
		Message:   fmt.Sprintf("context %q is unreachable", target),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"target": target,
		},
		Cause: cause,
	}
}

func NewImageLoadError(imageURL string, cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorImageLoad,
		Message:   "failed to load image for processing",
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"image_url": imageURL,
		},
		Cause: cause,
	}
}

func NewClipboardError(cause error) *PipelineError {
	return &PipelineError{
		Code:      ErrorClipboard,
		Message:   "failed to copy text to clipboard",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// ToMap converts error to map for wire transfer and statistics storage
func (e *PipelineError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
