// Package client provides the default implementation of the request.Sender interface.
//
// Client is based on the standard net/http package and contains tracing/telemetry support.
// Requests are not retried, a failed request is reported to the caller immediately.
//
// Use request.NewHTTPRequest to define an immutable HTTP request
// and the requester package to send it with loading, notification and de-duplication support.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"time"

	otelMetric "go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	clientTrace "github.com/lskk/go-request/pkg/client/trace"
	"github.com/lskk/go-request/pkg/client/trace/otel"
	"github.com/lskk/go-request/pkg/request"
)

// UserAgent is the default User-Agent header value.
const UserAgent = "lskk-go-request"

// Client is a default and configurable implementation of the request.Sender interface by Go native http.Client.
// It supports tracing/telemetry.
type Client struct {
	transport    http.RoundTripper
	baseURL      *url.URL
	header       http.Header
	timeout      time.Duration
	traceFactory []clientTrace.Factory
}

// New creates new HTTP Client.
func New() Client {
	c := Client{transport: DefaultTransport(), header: make(http.Header)}
	c.header.Set("User-Agent", UserAgent)
	c.header.Set("Accept-Encoding", "gzip, br")
	return c
}

// WithBaseURL returns a clone of the Client with base url set.
func (c Client) WithBaseURL(baseURLStr string) Client {
	baseURL, err := url.Parse(baseURLStr)
	if err != nil {
		panic(fmt.Errorf(`base url "%s" is not valid: %w`, baseURLStr, err))
	}
	c.baseURL = baseURL
	return c
}

// WithUserAgent returns a clone of the Client with user agent set.
func (c Client) WithUserAgent(v string) Client {
	return c.WithHeader("User-Agent", v)
}

// WithHeader returns a clone of the Client with common header set.
func (c Client) WithHeader(key, value string) Client {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Client with common headers set.
func (c Client) WithHeaders(headers map[string]string) Client {
	c.header = c.header.Clone()
	for k, v := range headers {
		c.header.Set(k, v)
	}
	return c
}

// WithTransport returns a clone of the Client with a HTTP transport set.
func (c Client) WithTransport(transport http.RoundTripper) Client {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithTimeout returns a clone of the Client with a default timeout for requests without own timeout.
func (c Client) WithTimeout(timeout time.Duration) Client {
	c.timeout = timeout
	return c
}

// AndTrace returns a clone of the Client with Trace hooks added.
// The last registered hooks are executed last.
func (c Client) AndTrace(fn clientTrace.Factory) Client {
	c.traceFactory = append(append([]clientTrace.Factory(nil), c.traceFactory...), fn)
	return c
}

// WithTelemetry returns a clone of the Client with OpenTelemetry tracing and metrics.
func (c Client) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...otel.Option) Client {
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

// Send method sends HTTP request and returns HTTP response, it implements the request.Sender interface.
func (c Client) Send(ctx context.Context, reqDef request.HTTPRequest) (res *http.Response, result any, err error) {
	// Method cannot be called on an empty value
	if c.transport == nil {
		panic(fmt.Errorf("client value is not initialized"))
	}

	// If method or url is not set, panic occurs. So we get these values first.
	method := reqDef.Method()
	reqURLStr := reqDef.URL()

	// Request timeout
	timeout := reqDef.Timeout()
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Init trace
	var trace *clientTrace.ClientTrace
	for _, fn := range c.traceFactory {
		var t *clientTrace.ClientTrace
		ctx, t = fn(ctx, reqDef)
		if t != nil {
			t.Compose(trace)
			trace = t
		}
	}
	if trace != nil {
		ctx = httptrace.WithClientTrace(ctx, &trace.ClientTrace)
		if trace.RequestProcessed != nil {
			defer func() {
				trace.RequestProcessed(result, err)
			}()
		}
	}

	// Convert to absolute url
	var reqURL *url.URL
	if c.baseURL == nil {
		reqURL, err = url.Parse(reqURLStr)
	} else {
		reqURL, err = c.baseURL.Parse(reqURLStr)
	}
	if err != nil {
		return nil, nil, err
	}

	// Set query parameters, parameters from the URL are kept
	if query := reqDef.QueryParams(); len(query) > 0 {
		values := reqURL.Query()
		for k, v := range query {
			values[k] = append(values[k], v...)
		}
		reqURL.RawQuery = values.Encode()
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	// Global headers
	for k, values := range c.header {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}

	// Request headers
	for k, values := range reqDef.RequestHeader() {
		req.Header.Del(k) // clear global values
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	// Body
	if reqDef.RequestBody() != nil {
		// GetBody factory is used for requests when a redirect requires reading the body more than once.
		req.GetBody = func() (io.ReadCloser, error) {
			body, err := requestBody(reqDef)
			if err != nil {
				return nil, fmt.Errorf(`request %s "%s": cannot prepare request body: %w`, req.Method, req.URL.String(), err)
			}
			return body, nil
		}
		if req.Body, err = req.GetBody(); err != nil {
			return nil, nil, err
		}
		if req.Body == nil {
			req.GetBody = nil
		}
	}

	// Setup native client
	nativeClient := http.Client{
		Transport: roundTripper{trace: trace, wrapped: c.transport},
	}

	// Send request
	startedAt := time.Now()
	res, err = nativeClient.Do(req)
	if err != nil {
		return nil, nil, handleSendError(startedAt, req, err)
	}

	// Process body
	result, err = HandleResponseBody(res, reqDef.ResultDef())
	if err != nil {
		return res, nil, fmt.Errorf(`cannot process request %s "%s": %w`, req.Method, req.URL.String(), err)
	}

	// Generic HTTP error
	if res.StatusCode > 399 {
		return res, result, NewHTTPError(req, res, result)
	}

	return res, result, nil
}

// roundTripper wraps a http.RoundTripper and adds trace functionality.
type roundTripper struct {
	trace   *clientTrace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}

	res, err := rt.wrapped.RoundTrip(req)

	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}

	return res, err
}
