package runner

import (
	"errors"
	"fmt"
)

// RequestErrorCode categorizes rejected requests.
type RequestErrorCode string

const (
	// ErrCodeInvalidRequest indicates missing or contradictory fields.
	ErrCodeInvalidRequest RequestErrorCode = "INVALID_REQUEST"

	// ErrCodeUnknownFramework indicates no adapter is registered for the id.
	ErrCodeUnknownFramework RequestErrorCode = "UNKNOWN_FRAMEWORK"

	// ErrCodeStaging indicates supporting files could not be staged.
	ErrCodeStaging RequestErrorCode = "STAGING_FAILED"
)

// RequestError is returned when a request cannot be executed at all. Faults
// in the submitted code are never RequestErrors; they are reported in the
// token stream.
type RequestError struct {
	Code    RequestErrorCode
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError reports whether err is a RequestError with the given code.
// Uses errors.As to handle wrapped errors.
func IsRequestError(err error, code RequestErrorCode) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// runTimeoutError interrupts the VM when the run deadline passes.
type runTimeoutError struct{}

func (runTimeoutError) Error() string { return "run deadline exceeded" }
