package llm

import (
	"errors"
	"fmt"
)

// ConnectionError reports that the endpoint could not be reached: dial
// failures, timeouts and cancelled contexts.
type ConnectionError struct {
	Model string
	Err   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("llm: failed to reach %s: %v", e.Model, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ResponseError reports that the endpoint answered but the answer is
// unusable: a non-200 status, a malformed body or no choices.
type ResponseError struct {
	Model      string
	StatusCode int
	Body       string
	Err        error
}

func (e *ResponseError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != 200 {
		return fmt.Sprintf("llm: %s returned status %d: %s", e.Model, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("llm: unexpected response from %s: %v", e.Model, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// IsConnection reports whether err is a transport failure.
func IsConnection(err error) bool {
	var target *ConnectionError
	return errors.As(err, &target)
}

// IsResponse reports whether err is a protocol failure.
func IsResponse(err error) bool {
	var target *ResponseError
	return errors.As(err, &target)
}

var (
	errEmptyChoices = errors.New("no choices in response")
	errMissingBase  = errors.New("llm: base url is required")
)
