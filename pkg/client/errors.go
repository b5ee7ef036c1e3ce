package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPError is returned by Client.Send if the response status code is 400 or greater.
type HTTPError struct {
	method     string
	url        string
	statusCode int
	response   *http.Response
	body       []byte
}

// NewHTTPError creates the HTTPError from the sent request and the received response.
// The body is taken from the result, if it is defined as *[]byte or *string.
func NewHTTPError(req *http.Request, res *http.Response, result any) *HTTPError {
	err := &HTTPError{method: req.Method, url: req.URL.String(), statusCode: res.StatusCode, response: res}
	switch v := result.(type) {
	case *[]byte:
		err.body = *v
	case *string:
		err.body = []byte(*v)
	}
	return err
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf(`request %s "%s" failed: %d %s`, e.method, e.url, e.statusCode, http.StatusText(e.statusCode))
}

// StatusCode returns HTTP status code.
func (e *HTTPError) StatusCode() int {
	return e.statusCode
}

// Response returns the raw HTTP response, the body is already consumed.
func (e *HTTPError) Response() *http.Response {
	return e.response
}

// Body returns the response body, if the request result was defined as *[]byte or *string.
func (e *HTTPError) Body() []byte {
	return e.body
}

// StatusCodeOf returns the HTTP status code from the error chain, if any.
func StatusCodeOf(err error) (int, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode(), true
	}
	return 0, false
}

func handleSendError(startedAt time.Time, req *http.Request, err error) error {
	ctx := req.Context()

	// Timeout
	var netErr net.Error
	if _, ok := ctx.Deadline(); ok && errors.Is(err, context.DeadlineExceeded) {
		err = urlError(req, fmt.Errorf("timeout after %s: %w", time.Since(startedAt).Round(time.Millisecond), context.DeadlineExceeded))
	} else if errors.Is(err, context.Canceled) {
		// The cause is kept, so the caller can find out who canceled the request
		err = urlError(req, fmt.Errorf("canceled after %s: %w", time.Since(startedAt).Round(time.Millisecond), context.Cause(ctx)))
	} else if errors.As(err, &netErr) && netErr.Timeout() {
		err = urlError(req, fmt.Errorf("timeout after %s: %w", time.Since(startedAt).Round(time.Millisecond), err))
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}

	return err
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
