package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	qerrors "github.com/kbukum/querykit/errors"
	"github.com/kbukum/querykit/httpclient"
)

// Doer sends a request. *httpclient.Adapter implements it.
type Doer interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Service is a stateless request helper bound to one base endpoint.
type Service struct {
	doer Doer
	base string
}

// NewService binds doer to base, e.g. "/users".
func NewService(doer Doer, base string) *Service {
	return &Service{doer: doer, base: "/" + strings.Trim(base, "/")}
}

// Base returns the bound endpoint.
func (s *Service) Base() string { return s.base }

// Path joins the base endpoint and suffix.
func (s *Service) Path(suffix string) string {
	if suffix == "" {
		return s.base
	}
	if strings.HasPrefix(suffix, "?") {
		return s.base + suffix
	}
	return s.base + "/" + strings.TrimLeft(suffix, "/")
}

// Get sends GET base+suffix with params and decodes the response.
func Get[T any](ctx context.Context, s *Service, suffix string, params map[string]string) (T, error) {
	return do[T](ctx, s, httpclient.Request{Method: http.MethodGet, Path: s.Path(suffix), Query: params})
}

// Post sends POST base+suffix with a JSON body and decodes the response.
func Post[T any](ctx context.Context, s *Service, suffix string, body any) (T, error) {
	return do[T](ctx, s, httpclient.Request{Method: http.MethodPost, Path: s.Path(suffix), Body: body})
}

// Put sends PUT base+suffix with a JSON body and decodes the response.
func Put[T any](ctx context.Context, s *Service, suffix string, body any) (T, error) {
	return do[T](ctx, s, httpclient.Request{Method: http.MethodPut, Path: s.Path(suffix), Body: body})
}

// Patch sends PATCH base+suffix with a JSON body and decodes the response.
func Patch[T any](ctx context.Context, s *Service, suffix string, body any) (T, error) {
	return do[T](ctx, s, httpclient.Request{Method: http.MethodPatch, Path: s.Path(suffix), Body: body})
}

// Delete sends DELETE base+suffix and discards the response body.
func Delete(ctx context.Context, s *Service, suffix string) error {
	_, err := s.doer.Do(ctx, httpclient.Request{Method: http.MethodDelete, Path: s.Path(suffix)})
	return err
}

func do[T any](ctx context.Context, s *Service, req httpclient.Request) (T, error) {
	var data T
	resp, err := s.doer.Do(ctx, req)
	if err != nil {
		return data, err
	}
	if len(resp.Body) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		var zero T
		return zero, qerrors.InvalidResponse(resp.StatusCode, err)
	}
	return data, nil
}
