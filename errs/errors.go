package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how far it is allowed to propagate.
type Kind string

const (
	// KindConfiguration is fatal: missing proxy list, missing cookie
	// store, unparsable inputs. Surfaced to the caller immediately.
	KindConfiguration Kind = "configuration"

	// KindResourceExhausted fails the current scrape call (empty proxy
	// pool at start) but not the process.
	KindResourceExhausted Kind = "resource_exhausted"

	// KindSessionOpen is isolated to one session: browser or context
	// acquisition failed, or credentials would not load. The proxy is
	// recorded as failed and the run continues.
	KindSessionOpen Kind = "session_open"

	// KindNavigationTimeout is logged and otherwise ignored; the session
	// keeps whatever was intercepted before the timeout.
	KindNavigationTimeout Kind = "navigation_timeout"

	// KindExtraction is swallowed per response.
	KindExtraction Kind = "extraction"

	// KindRateLimited marks a run that was cut short by the shared
	// signal; results are returned as partial, never as a failure.
	KindRateLimited Kind = "rate_limited"
)

// Error carries a Kind alongside the usual message and wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Configurationf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when
// the chain has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
