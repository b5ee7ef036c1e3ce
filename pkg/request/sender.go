package request

import (
	"context"
	"net/http"
)

// Sender represents an HTTP client, the client.Client is a default implementation using the standard net/http package.
type Sender interface {
	// Send method sends defined request and returns response.
	// Type of the return value "result" must be the same as type of the HTTPRequest.ResultDef(), otherwise panic will occur.
	//
	// The request must be canceled when the ctx is canceled.
	// The returned error must keep the context error in its chain, so callers can recognize a cancellation.
	Send(ctx context.Context, request HTTPRequest) (rawResponse *http.Response, result any, err error)
}
