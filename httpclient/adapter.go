package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	qerrors "github.com/kbukum/querykit/errors"
	"github.com/kbukum/querykit/logger"
	"github.com/kbukum/querykit/observability"
	"github.com/kbukum/querykit/tokenstore"
)

const instrumentationName = "github.com/kbukum/querykit/httpclient"

// Adapter sends requests to the resource server and normalizes failures.
type Adapter struct {
	httpClient *http.Client
	config     Config
	log        *logger.Logger
	store      tokenstore.Store
	redirector Redirector
	tracer     trace.Tracer
	metrics    *observability.HTTPMetrics

	extraRequest  []RequestInterceptor
	extraResponse []ResponseInterceptor

	requestChain  []RequestInterceptor
	responseChain []ResponseInterceptor
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithTokenStore sets the store the bearer token is read from and cleared in.
func WithTokenStore(s tokenstore.Store) Option {
	return func(a *Adapter) { a.store = s }
}

// WithRedirector sets the handler notified after a 401.
func WithRedirector(r Redirector) Option {
	return func(a *Adapter) { a.redirector = r }
}

// WithHTTPClient replaces the underlying *http.Client. Config.Timeout
// still bounds every request.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Adapter) { a.tracer = tp.Tracer(instrumentationName) }
}

// WithMetrics sets the HTTP instruments. Defaults to instruments on the
// global meter provider.
func WithMetrics(m *observability.HTTPMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// WithRequestInterceptor appends interceptors after the built-in chain.
func WithRequestInterceptor(ri ...RequestInterceptor) Option {
	return func(a *Adapter) { a.extraRequest = append(a.extraRequest, ri...) }
}

// WithResponseInterceptor appends interceptors after the built-in chain.
func WithResponseInterceptor(ri ...ResponseInterceptor) Option {
	return func(a *Adapter) { a.extraResponse = append(a.extraResponse, ri...) }
}

// New creates an adapter.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	a.log = logger.OrGlobal(a.log).WithComponent("httpclient")
	if a.httpClient == nil {
		a.httpClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(instrumentationName)
	}
	if a.metrics == nil {
		m, err := observability.NewHTTPMetrics(observability.Meter(instrumentationName))
		if err != nil {
			a.log.Warn("http metrics disabled", logger.ErrorFields("init_metrics", err))
		}
		a.metrics = m
	}

	a.requestChain = []RequestInterceptor{
		RequestIDInterceptor(),
		BearerTokenInterceptor(a.store, cfg.TokenKey),
	}
	if cfg.Debug {
		a.requestChain = append(a.requestChain, DebugRequestInterceptor(a.log))
	}
	a.requestChain = append(a.requestChain, a.extraRequest...)

	a.responseChain = []ResponseInterceptor{
		UnauthorizedInterceptor(a.store, cfg.TokenKey, a.redirector, cfg.LoginPath, a.log),
	}
	if cfg.Debug {
		a.responseChain = append(a.responseChain, DebugResponseInterceptor(a.log))
	}
	a.responseChain = append(a.responseChain, a.extraResponse...)

	return a, nil
}

// Config returns the effective configuration.
func (a *Adapter) Config() Config { return a.config }

// Do sends req and returns the response. Every error is an *errors.Error.
// For a non-2xx response both the Response and the error are returned.
func (a *Adapter) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := a.tracer.Start(ctx, observability.SpanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String(observability.AttrHTTPMethod, req.Method)),
	)
	defer span.End()

	resp, httpReq, nerr := a.do(ctx, req)

	if httpReq != nil {
		span.SetAttributes(
			attribute.String(observability.AttrHTTPURL, httpReq.URL.String()),
			attribute.String(observability.AttrRequestID, httpReq.Header.Get(HeaderRequestID)),
		)
		out := &Outcome{Request: httpReq, Response: resp, Err: nerr}
		for _, ri := range a.responseChain {
			ri(ctx, out)
		}
	}
	if resp != nil {
		span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, resp.StatusCode))
	}

	if nerr != nil {
		span.SetAttributes(attribute.String(observability.AttrErrorKind, nerr.Kind.String()))
		observability.SetSpanError(span, nerr)
		return resp, nerr
	}
	return resp, nil
}

// do performs the request. httpReq is nil when the request could not be
// built.
func (a *Adapter) do(ctx context.Context, req Request) (*Response, *http.Request, *qerrors.Error) {
	httpReq, err := a.buildRequest(ctx, req)
	if err != nil {
		return nil, nil, qerrors.RequestSetup(err)
	}
	for _, ri := range a.requestChain {
		if err := ri(ctx, httpReq); err != nil {
			return nil, httpReq, qerrors.RequestSetup(err)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	reqCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	httpReq = httpReq.WithContext(reqCtx)

	start := time.Now()
	a.metrics.RecordStart(ctx)

	resp, body, err := a.send(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		nerr := a.transportError(ctx, err)
		a.metrics.RecordEnd(ctx, req.Method, 0, nerr.Kind.String(), elapsed)
		return nil, httpReq, nerr
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
		RequestID:  httpReq.Header.Get(HeaderRequestID),
		Duration:   elapsed,
	}
	if result.IsSuccess() {
		a.metrics.RecordEnd(ctx, req.Method, resp.StatusCode, "", elapsed)
		return result, httpReq, nil
	}

	nerr := qerrors.FromResponse(resp.StatusCode, body)
	a.metrics.RecordEnd(ctx, req.Method, resp.StatusCode, nerr.Kind.String(), elapsed)
	if resp.StatusCode >= http.StatusInternalServerError {
		a.log.Error("server error", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldURL, httpReq.URL.String(),
			logger.FieldStatus, resp.StatusCode,
			logger.FieldRequestID, result.RequestID,
			logger.FieldError, nerr.Message,
		))
	}
	return result, httpReq, nerr
}

func (a *Adapter) send(httpReq *http.Request) (*http.Response, []byte, error) {
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp, body, nil
}

// transportError classifies a failure after the request left the adapter.
// A caller cancellation is a request setup error; everything else,
// including the adapter timeout, is a network error.
func (a *Adapter) transportError(ctx context.Context, err error) *qerrors.Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return qerrors.RequestSetup(ctx.Err())
	}
	return qerrors.Network(err)
}

func (a *Adapter) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	rawURL := req.Path
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return nil, fmt.Errorf("create request: unsupported scheme %q", httpReq.URL.Scheme)
	}
	if httpReq.URL.Host == "" {
		return nil, fmt.Errorf("create request: missing host in %q", rawURL)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(v), nil
	case json.RawMessage:
		return bytes.NewReader(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}

// Close releases idle connections.
func (a *Adapter) Close() {
	a.httpClient.CloseIdleConnections()
}
