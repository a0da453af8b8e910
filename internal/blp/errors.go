package blp

import (
	"errors"
	"fmt"
)

var (
	// ErrSDKUnavailable is returned by Dial when the binary was built without
	// the blpapi build tag.
	ErrSDKUnavailable = errors.New("built without blpapi SDK support (rebuild with -tags blpapi)")

	// ErrNotConnected is returned when the Bloomberg Terminal (BBComm) cannot
	// be reached or the session failed to start.
	ErrNotConnected = errors.New("bloomberg terminal is not reachable")

	// ErrResponseTimeout is returned when Bloomberg does not deliver the
	// final response event within the session timeout.
	ErrResponseTimeout = errors.New("timed out waiting for bloomberg response")
)

// ResponseError is a request-level error reported by Bloomberg inside a
// response message (e.g. daily limit reached, invalid request).
type ResponseError struct {
	Category string
	Message  string
}

func (e *ResponseError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("bloomberg response error: %s", e.Message)
	}
	return fmt.Sprintf("bloomberg response error (%s): %s", e.Category, e.Message)
}

// ValidationError reports a request that was rejected before reaching
// Bloomberg.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
