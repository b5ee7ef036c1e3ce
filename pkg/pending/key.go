package pending

import (
	"net/url"
	"strings"

	"github.com/lskk/go-request/pkg/request"
)

// Key derives the de-duplication key of a request: "METHOD&url".
// If withParams is set, the encoded query and body are appended: "METHOD&url&query&body".
func Key(method, reqURL string, query url.Values, body any, withParams bool) string {
	parts := []string{strings.ToUpper(method), reqURL}
	if withParams {
		parts = append(parts, query.Encode(), request.EncodeBody(body))
	}
	return strings.Join(parts, "&")
}

// KeyOf derives the key from the request definition.
func KeyOf(r request.HTTPRequest, withParams bool) string {
	return Key(r.Method(), r.URL(), r.QueryParams(), r.RequestBody(), withParams)
}
