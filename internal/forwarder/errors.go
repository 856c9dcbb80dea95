package forwarder

import "errors"

// Startup failure that must end the process before anything is served
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(reason string, err error) error {
	return &FatalError{Reason: reason, Err: err}
}

// Reports whether err (or anything it wraps) is a FatalError
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
