package lottery

import (
	"errors"
	"fmt"
)

// Failure kinds. Match them with errors.Is.
var (
	// ErrNotFound means the draw is not posted yet. Poll again later.
	ErrNotFound = errors.New("result not available yet")
	// ErrMalformedSource means the page or document no longer has the expected shape.
	ErrMalformedSource = errors.New("malformed source")
	// ErrTransport covers network, timeout and HTTP status failures.
	ErrTransport = errors.New("transport failure")
	// ErrExhaustedRetries means every attempt timed out; the site is likely down.
	ErrExhaustedRetries = errors.New("retries exhausted, site likely down")
)

// Failure is the only error type adapters return.
type Failure struct {
	Source string
	Kind   error
	Cause  string
	Err    error
}

// Fail builds a Failure of the given kind.
func Fail(source string, kind error, err error, format string, args ...any) *Failure {
	return &Failure{Source: source, Kind: kind, Cause: fmt.Sprintf(format, args...), Err: err}
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %v: %s", f.Source, f.Kind, f.Cause)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// RetryLater reports whether err means "try another source or try later"
// rather than a broken source.
func RetryLater(err error) bool {
	return err == nil || errors.Is(err, ErrNotFound)
}
