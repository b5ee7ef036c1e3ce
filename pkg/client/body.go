package client

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/lskk/go-request/pkg/request"
)

func requestBody(r request.HTTPRequest) (io.ReadCloser, error) {
	body := r.RequestBody()
	if v, ok := body.(string); ok {
		return io.NopCloser(strings.NewReader(v)), nil
	}
	if v, ok := body.([]byte); ok {
		return io.NopCloser(bytes.NewReader(v)), nil
	}
	if v, ok := body.(io.ReadSeekCloser); ok {
		// io.ReadSeekCloser stream
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return v, nil
	}
	if v, ok := body.(io.ReadSeeker); ok {
		// io.ReadSeeker stream
		if _, err := v.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return io.NopCloser(v), nil
	}
	if body != nil && isJSONContentType(r.RequestHeader().Get("Content-Type")) {
		// Json body
		c, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf(`cannot encode JSON body: %w`, err)
		}
		return io.NopCloser(bytes.NewReader(c)), nil
	}
	if body != nil {
		// Form body
		return io.NopCloser(strings.NewReader(request.EncodeBody(body))), nil
	}
	// empty body
	return nil, nil
}

// HandleResponseBody maps the response body to the result definition and closes the body.
// Raw results (*[]byte, *string, io.Writer) are filled regardless of the status code, so an error response is available too.
// JSON is decoded only from a successful response.
func HandleResponseBody(r *http.Response, resultDef any) (result any, err error) {
	defer r.Body.Close()

	if r.StatusCode == http.StatusNoContent || resultDef == nil {
		return nil, nil
	}

	// Process content encoding
	body, err := decodeBody(r.Body, r.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}

	switch v := resultDef.(type) {
	case *[]byte:
		// Load response body as []byte
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = bodyBytes
		return v, nil
	case *string:
		// Load response body as string
		bodyBytes, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		*v = string(bodyBytes)
		return v, nil
	case io.WriteCloser:
		// Stream response to io.WriteCloser
		if _, err := io.Copy(v, body); err != nil {
			return nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		if err := v.Close(); err != nil {
			return nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return v, nil
	case io.Writer:
		// Stream response to io.Writer
		if _, err := io.Copy(v, body); err != nil {
			return nil, fmt.Errorf(`cannot read response body: %w`, err)
		}
		return v, nil
	}

	// Map JSON response to defined result, only successful responses
	if isJSONContentType(r.Header.Get("Content-Type")) && r.StatusCode > 199 && r.StatusCode < 300 {
		if err := json.NewDecoder(body).Decode(resultDef); err != nil {
			return nil, fmt.Errorf(`cannot decode JSON result: %w`, err)
		}
		return resultDef, nil
	}

	return nil, nil
}

func decodeBody(body io.ReadCloser, contentEncoding string) (io.Reader, error) {
	switch strings.ToLower(contentEncoding) {
	case "gzip":
		v, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("cannot decode gzip response: %w", err)
		}
		return v, nil
	case "br":
		return brotli.NewReader(body), nil
	default:
		return body, nil
	}
}
