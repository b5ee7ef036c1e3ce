package client

import (
	"os"

	"github.com/jarcoal/httpmock"
	"go.uber.org/zap"

	"github.com/lskk/go-request/pkg/client/trace"
)

// NewTestClient creates the Client for tests.
//
// If the TEST_HTTP_CLIENT_VERBOSE environment variable is set to "true",
// then all HTTP requests are logged to stderr.
func NewTestClient() Client {
	c := New()
	if os.Getenv("TEST_HTTP_CLIENT_VERBOSE") == "true" {
		if logger, err := zap.NewDevelopment(); err == nil {
			c = c.AndTrace(trace.ZapTracer(logger))
		}
	}
	return c
}

// NewMockedClient creates the Client with mocked HTTP transport.
func NewMockedClient() (Client, *httpmock.MockTransport) {
	mockTransport := httpmock.NewMockTransport()
	return NewTestClient().WithTransport(mockTransport), mockTransport
}
