package requester

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lskk/go-request/pkg/client"
)

const (
	// SystemErrorMarker is the errorMessage of an unexpected server failure, it is shown as an error, not as a warning.
	SystemErrorMarker = "系统错误"

	defaultWarningText = "Operation failed"
	timeoutText        = "request timeout, please check the network connection"
	networkText        = "network error, please check the network is connected"
)

// statusMessages maps an HTTP status code to a user message.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusUnauthorized:        "login expired, please log in again",
	http.StatusForbidden:           "access denied",
	http.StatusNotFound:            "request address not found",
	http.StatusInternalServerError: "server busy",
	http.StatusBadGateway:          "gateway error",
	http.StatusServiceUnavailable:  "service unavailable, the server is overloaded or under maintenance",
	http.StatusGatewayTimeout:      "gateway timeout",
}

// StatusMessage returns the user message for the HTTP status code.
func StatusMessage(statusCode int) string {
	if msg, found := statusMessages[statusCode]; found {
		return msg
	}
	if text := http.StatusText(statusCode); text != "" {
		return strings.ToLower(text)
	}
	return strings.ToLower(defaultWarningText)
}

// WarningError is a business error, the request succeeded but the payload reports a failure.
type WarningError struct {
	Payload *Payload
}

// Error returns the payload as 2-space indented JSON.
func (e *WarningError) Error() string {
	return e.Payload.JSON()
}

// TransportError is a failed request: network error, timeout or an HTTP error status.
type TransportError struct {
	// Message for the user.
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// errorMessage returns the user message for the failed request.
func errorMessage(o Options, err error) string {
	if o.ErrorMsg != "" {
		return o.ErrorMsg
	}
	if statusCode, ok := client.StatusCodeOf(err); ok {
		return o.Action + ": " + StatusMessage(statusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout") {
		return o.Action + ": " + timeoutText
	}
	return o.Action + ": " + networkText
}

// warningMessage returns the user message for the business error.
func warningMessage(o Options, p *Payload) string {
	text := o.WarningMsg
	if text == "" {
		text = p.ErrorMessage
	}
	if text == "" {
		text = defaultWarningText
	}
	return o.Action + ": " + text
}
