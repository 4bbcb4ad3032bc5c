package completion

import "errors"

// ErrNoResult is the uniform "not obtainable" failure for CompleteJSON:
// whether the backend call failed terminally or the model emitted JSON that
// could not be decoded, callers see this one sentinel and can substitute
// empty results instead of aborting the pipeline.
var ErrNoResult = errors.New("completion: no usable result")

// FatalError marks a backend rejection that retries cannot fix, such as an
// HTTP 400 for a malformed prompt.
type FatalError struct {
	StatusCode int
	err        error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as non-retryable.
func NewFatalError(statusCode int, err error) error {
	return &FatalError{StatusCode: statusCode, err: err}
}

// IsFatal reports whether err is non-retryable.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
