package tts

import (
	"errors"
	"fmt"
)

// Common narration service errors
var (
	// ErrGenerationFailed indicates the backend did not produce audio.
	ErrGenerationFailed = errors.New("audio generation failed")

	// ErrNetwork indicates the backend could not be reached or answered
	// with something unusable.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates polling gave up before the task finished.
	ErrTimeout = errors.New("generation timed out")

	// ErrTranslationFailed indicates translation produced no text.
	ErrTranslationFailed = errors.New("translation failed")

	// ErrEmptyText indicates there was nothing to synthesize.
	ErrEmptyText = errors.New("text cannot be empty")
)

// ErrorCode identifies the kind of failure reported by the backend.
type ErrorCode string

const (
	ErrorCodeGeneration  ErrorCode = "GENERATION_FAILED"
	ErrorCodeNetwork     ErrorCode = "NETWORK"
	ErrorCodeTimeout     ErrorCode = "TIMEOUT"
	ErrorCodeTranslation ErrorCode = "TRANSLATION_FAILED"
)

// Error carries a code, a message from the backend, and the underlying
// cause when there is one.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.sentinel(), e.Cause)
	default:
		return e.sentinel().Error()
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's code. A timeout is also a
// generation failure.
func (e *Error) Is(target error) bool {
	if target == e.sentinel() {
		return true
	}
	return e.Code == ErrorCodeTimeout && target == ErrGenerationFailed
}

func (e *Error) sentinel() error {
	switch e.Code {
	case ErrorCodeNetwork:
		return ErrNetwork
	case ErrorCodeTimeout:
		return ErrTimeout
	case ErrorCodeTranslation:
		return ErrTranslationFailed
	default:
		return ErrGenerationFailed
	}
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
