// Package errors defines the single normalized error shape produced by every
// failure path of the request pipeline.
//
// Whatever the origin (an HTTP 4xx/5xx response, a network failure or
// timeout, a request that could not be built, or a form that failed
// validation) callers receive an *Error carrying a message, an optional
// status and an optional machine-readable code:
//
//	user, err := users.Get(ctx, 42)
//	if errors.IsNotFound(err) {
//	    // render "not found"
//	}
//
// Transport errors are normalized exactly once; Normalize returns an existing
// *Error unchanged so downstream layers never re-wrap them.
package errors
