package httpclient

import (
	"net/http"
	"time"
)

// Request describes an outbound request.
type Request struct {
	// Method is the HTTP method.
	Method string
	// Path is appended to the base URL. Absolute URLs are used as is.
	Path string
	// Query holds URL query parameters.
	Query map[string]string
	// Headers override the configured default headers.
	Headers map[string]string
	// Body is JSON-encoded unless it is []byte or nil.
	Body any
}

// Response is a completed response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers holds the first value of each response header.
	Headers map[string]string
	// Body is the raw response body.
	Body []byte
	// RequestID is the id sent in the X-Request-ID header.
	RequestID string
	// Duration is the time from send to the end of the body.
	Duration time.Duration
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
