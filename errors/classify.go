package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Normalize converts any error into an *Error. An existing *Error is returned
// unchanged. A deadline expiry is a network failure; everything else that did
// not come from the transport is a request setup failure.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Network(err)
	}
	return RequestSetup(err)
}

// FromPanic converts a recovered panic value into a request setup error.
func FromPanic(v any) *Error {
	var cause error
	switch x := v.(type) {
	case error:
		cause = x
	default:
		cause = fmt.Errorf("%v", x)
	}
	e := RequestSetup(fmt.Errorf("panic: %w", cause))
	e.Code = ErrCodePanic
	return e
}

// IsTransient reports whether err is worth retrying: network failures and
// 5xx responses. Client errors (4xx), setup and validation failures are
// terminal.
func IsTransient(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	switch e.Kind {
	case KindNetwork:
		return true
	case KindServer:
		return e.Status >= 500 && e.Retryable
	default:
		return false
	}
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

// IsNetwork reports whether err is a network failure.
func IsNetwork(err error) bool { return IsKind(err, KindNetwork) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return IsKind(err, KindValidation) }

// IsStatus reports whether err is a server error with the given status.
func IsStatus(err error, status int) bool {
	e, ok := As(err)
	return ok && e.Kind == KindServer && e.Status == status
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }

// IsTimeout reports whether err is a network failure caused by a timeout.
func IsTimeout(err error) bool {
	e, ok := As(err)
	if !ok || e.Kind != KindNetwork || e.Cause == nil {
		return false
	}
	if stderrors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(e.Cause, &ne) && ne.Timeout()
}

// StatusOf returns the status carried by err, or 0.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return 0
}
