package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	qerrors "github.com/kbukum/querykit/errors"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/tokenstore"
)

// RequestInterceptor runs before a request is sent and may modify it. A
// returned error aborts the request with a request setup error.
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// Outcome is what a ResponseInterceptor observes: the sent request plus
// either the response or the normalized error. For server errors both
// Response and Err are set.
type Outcome struct {
	Request  *http.Request
	Response *Response
	Err      *qerrors.Error
}

// ResponseInterceptor observes every completed request after
// normalization. It cannot change the result.
type ResponseInterceptor func(ctx context.Context, out *Outcome)

// RequestIDInterceptor sets a fresh X-Request-ID unless the caller set one.
func RequestIDInterceptor() RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		if req.Header.Get(HeaderRequestID) == "" {
			req.Header.Set(HeaderRequestID, uuid.NewString())
		}
		return nil
	}
}

// BearerTokenInterceptor attaches "Authorization: Bearer <token>" when the
// store holds a token under key. Without a token the request goes out
// unauthenticated.
func BearerTokenInterceptor(store tokenstore.Store, key string) RequestInterceptor {
	return func(ctx context.Context, req *http.Request) error {
		if store == nil {
			return nil
		}
		token, ok, err := tokenstore.Lookup(ctx, store, key)
		if err != nil {
			return fmt.Errorf("read auth token: %w", err)
		}
		if ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// DebugRequestInterceptor logs method, URL, query and body of each request.
func DebugRequestInterceptor(log *logger.Logger) RequestInterceptor {
	return func(_ context.Context, req *http.Request) error {
		fields := logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldURL, req.URL.String(),
			logger.FieldRequestID, req.Header.Get(HeaderRequestID),
		)
		if len(req.URL.Query()) > 0 {
			fields["params"] = req.URL.Query()
		}
		if b := peekBody(req); b != "" {
			fields["body"] = b
		}
		log.Debug("api request", fields)
		return nil
	}
}

// DebugResponseInterceptor logs status and duration of each response.
func DebugResponseInterceptor(log *logger.Logger) ResponseInterceptor {
	return func(_ context.Context, out *Outcome) {
		fields := logger.Fields(
			logger.FieldMethod, out.Request.Method,
			logger.FieldURL, out.Request.URL.String(),
			logger.FieldRequestID, out.Request.Header.Get(HeaderRequestID),
		)
		if out.Response != nil {
			fields[logger.FieldStatus] = out.Response.StatusCode
			fields[logger.FieldDuration] = out.Response.Duration.Milliseconds()
		}
		if out.Err != nil {
			fields[logger.FieldError] = out.Err.Error()
		}
		log.Debug("api response", fields)
	}
}

// peekBody reads a copy of the request body without consuming it.
func peekBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	rc, err := req.GetBody()
	if err != nil {
		return ""
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, 4<<10))
	if err != nil {
		return ""
	}
	return string(b)
}
