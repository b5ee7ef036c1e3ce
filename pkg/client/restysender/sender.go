// Package restysender implements the request.Sender interface on top of the resty client.
//
// It is an alternative to the client.Client, for applications which already configure a resty.Client
// (proxies, certificates, middlewares) and want to reuse it.
package restysender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lskk/go-request/pkg/client"
	"github.com/lskk/go-request/pkg/request"
)

// Sender sends requests by the resty.Client.
type Sender struct {
	client *resty.Client
}

// New creates the Sender with a new resty.Client.
func New(timeout time.Duration) *Sender {
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetHeader("User-Agent", client.UserAgent)
	return &Sender{client: c}
}

// NewFromClient wraps an existing resty.Client.
func NewFromClient(c *resty.Client) *Sender {
	return &Sender{client: c}
}

// Client returns the underlying resty.Client.
func (s *Sender) Client() *resty.Client {
	return s.client
}

// Send implements the request.Sender interface.
func (s *Sender) Send(ctx context.Context, reqDef request.HTTPRequest) (*http.Response, any, error) {
	method := reqDef.Method()
	reqURL := reqDef.URL()

	if timeout := reqDef.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := s.client.R().SetContext(ctx)
	for k, values := range reqDef.RequestHeader() {
		req.SetHeaderMultiValues(map[string][]string{k: values})
	}
	if query := reqDef.QueryParams(); len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body := reqDef.RequestBody(); body != nil {
		switch v := body.(type) {
		case string, []byte, io.Reader:
			req.SetBody(v)
		default:
			if strings.Contains(reqDef.RequestHeader().Get("Content-Type"), "json") {
				// Marshaled by resty
				req.SetBody(v)
			} else {
				req.SetBody(request.EncodeBody(v))
			}
		}
	}

	startedAt := time.Now()
	resp, err := req.Execute(method, reqURL)
	if err != nil {
		return nil, nil, sendError(ctx, method, reqURL, startedAt, err)
	}

	// The body is already read by resty, replay it for the result mapping
	rawRes := resp.RawResponse
	rawRes.Body = io.NopCloser(bytes.NewReader(resp.Body()))
	result, err := client.HandleResponseBody(rawRes, reqDef.ResultDef())
	if err != nil {
		return rawRes, nil, fmt.Errorf(`cannot process request %s "%s": %w`, method, reqURL, err)
	}

	if resp.IsError() {
		return rawRes, result, client.NewHTTPError(resp.Request.RawRequest, rawRes, result)
	}
	return rawRes, result, nil
}

func sendError(ctx context.Context, method, reqURL string, startedAt time.Time, err error) error {
	elapsed := time.Since(startedAt).Round(time.Millisecond)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf(`request %s "%s" failed: timeout after %s: %w`, method, reqURL, elapsed, context.DeadlineExceeded)
	case ctx.Err() != nil:
		return fmt.Errorf(`request %s "%s" failed: canceled after %s: %w`, method, reqURL, elapsed, context.Cause(ctx))
	default:
		return fmt.Errorf(`request %s "%s" failed: %w`, method, reqURL, err)
	}
}
