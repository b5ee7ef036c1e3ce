package request

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// HTTPRequest is an immutable HTTP request.
type HTTPRequest interface {
	// Method returns HTTP method.
	Method() string
	// URL method returns HTTP URL.
	URL() string
	// RequestHeader method returns HTTP request headers.
	RequestHeader() http.Header
	// QueryParams method returns HTTP query parameters.
	QueryParams() url.Values
	// RequestBody method returns a definition of HTTP request body.
	// Supported request body data types are:
	// `string`, `[]byte`, `*struct`, `*map`, `map`, `*slice`, `io.ReadSeeker` and `io.ReadSeekCloser`.
	// Automatic marshaling for JSON is provided, if the Content-Type is "application/json".
	RequestBody() any
	// ResultDef method returns a target value for result mapping.
	ResultDef() any
	// Timeout returns the maximum duration of the request, zero means no limit.
	Timeout() time.Duration
	// IsMutating returns true for methods which send parameters in the body: PUT, POST and PATCH.
	IsMutating() bool

	// WithGet is shortcut for WithMethod(http.MethodGet).WithURL(url)
	WithGet(url string) HTTPRequest
	// WithPost is shortcut for WithMethod(http.MethodPost).WithURL(url)
	WithPost(url string) HTTPRequest
	// WithPut is shortcut for WithMethod(http.MethodPut).WithURL(url)
	WithPut(url string) HTTPRequest
	// WithPatch is shortcut for WithMethod(http.MethodPatch).WithURL(url)
	WithPatch(url string) HTTPRequest
	// WithDelete is shortcut for WithMethod(http.MethodDelete).WithURL(url)
	WithDelete(url string) HTTPRequest
	// WithMethod method sets the HTTP method.
	WithMethod(method string) HTTPRequest
	// WithBaseURL method sets the base URL.
	WithBaseURL(baseURL string) HTTPRequest
	// WithURL method sets the URL.
	WithURL(url string) HTTPRequest
	// AndHeader method sets a single header field and its value.
	AndHeader(header string, value string) HTTPRequest
	// AndQueryParam method sets single parameter and its value.
	AndQueryParam(param, value string) HTTPRequest
	// WithQueryParams method sets multiple parameters and its values.
	WithQueryParams(params map[string]string) HTTPRequest
	// WithQueryValues method replaces all query parameters, nil clears them.
	WithQueryValues(values url.Values) HTTPRequest
	// WithFormBody method sets Form parameters and Content-Type header to "application/x-www-form-urlencoded".
	WithFormBody(form map[string]string) HTTPRequest
	// WithJSONBody method sets request body to the JSON value and Content-Type header to "application/json".
	WithJSONBody(body any) HTTPRequest
	// WithBody method sets request body.
	WithBody(body any) HTTPRequest
	// WithContentType method sets custom content type.
	WithContentType(contentType string) HTTPRequest
	// WithResult method registers the request `Result` value for automatic mapping.
	WithResult(result any) HTTPRequest
	// WithTimeout method sets the maximum duration of the request.
	WithTimeout(timeout time.Duration) HTTPRequest
	// WithParamsInBody moves query parameters to a JSON body, if the method is mutating and no body is set.
	WithParamsInBody() HTTPRequest
}

// NewHTTPRequest creates immutable HTTP request.
func NewHTTPRequest() HTTPRequest {
	return httpRequest{header: make(http.Header)}
}

// httpRequest implements HTTPRequest interface.
type httpRequest struct {
	method      string
	baseURL     *url.URL
	url         *url.URL
	header      http.Header
	queryParams url.Values
	body        any
	resultDef   any
	timeout     time.Duration
}

func (r httpRequest) Method() string {
	if r.method == "" {
		panic(fmt.Errorf("request method is not set"))
	}
	return r.method
}

func (r httpRequest) URL() string {
	if r.url == nil {
		panic(fmt.Errorf("request url is not set"))
	}
	var outURL *url.URL
	if r.baseURL == nil {
		outURL = r.url
	} else if v, err := url.Parse(r.baseURL.String() + "/" + strings.TrimLeft(r.url.String(), "/")); err == nil {
		outURL = v
	} else {
		panic(fmt.Errorf(`cannot parse url: %w`, err))
	}
	return outURL.String()
}

func (r httpRequest) RequestHeader() http.Header {
	return r.header
}

func (r httpRequest) QueryParams() url.Values {
	return r.queryParams
}

func (r httpRequest) RequestBody() any {
	return r.body
}

func (r httpRequest) ResultDef() any {
	return r.resultDef
}

func (r httpRequest) Timeout() time.Duration {
	return r.timeout
}

func (r httpRequest) IsMutating() bool {
	switch strings.ToUpper(r.method) {
	case http.MethodPut, http.MethodPost, http.MethodPatch:
		return true
	default:
		return false
	}
}

func (r httpRequest) WithGet(url string) HTTPRequest {
	return r.WithMethod(http.MethodGet).WithURL(url)
}

func (r httpRequest) WithPost(url string) HTTPRequest {
	return r.WithMethod(http.MethodPost).WithURL(url)
}

func (r httpRequest) WithPut(url string) HTTPRequest {
	return r.WithMethod(http.MethodPut).WithURL(url)
}

func (r httpRequest) WithPatch(url string) HTTPRequest {
	return r.WithMethod(http.MethodPatch).WithURL(url)
}

func (r httpRequest) WithDelete(url string) HTTPRequest {
	return r.WithMethod(http.MethodDelete).WithURL(url)
}

func (r httpRequest) WithMethod(method string) HTTPRequest {
	r.method = strings.ToUpper(method)
	return r
}

func (r httpRequest) WithURL(urlStr string) HTTPRequest {
	if v, err := url.Parse(urlStr); err == nil {
		r.url = v
	} else {
		panic(fmt.Errorf(`url "%s" is not valid :%w`, urlStr, err))
	}
	return r
}

func (r httpRequest) WithBaseURL(baseURL string) HTTPRequest {
	if v, err := url.Parse(strings.TrimRight(baseURL, "/")); err == nil {
		r.baseURL = v
	} else {
		panic(fmt.Errorf(`base url "%s" is not valid :%w`, baseURL, err))
	}
	return r
}

func (r httpRequest) AndHeader(header string, value string) HTTPRequest {
	r.header = r.header.Clone()
	if r.header == nil {
		r.header = make(http.Header)
	}
	r.header.Set(header, value)
	return r
}

func (r httpRequest) AndQueryParam(key, value string) HTTPRequest {
	r.queryParams = cloneURLValues(r.queryParams)
	r.queryParams.Set(key, value)
	return r
}

func (r httpRequest) WithQueryParams(params map[string]string) HTTPRequest {
	r.queryParams = make(url.Values)
	for k, v := range params {
		r.queryParams.Set(k, v)
	}
	return r
}

func (r httpRequest) WithQueryValues(values url.Values) HTTPRequest {
	if values == nil {
		r.queryParams = nil
	} else {
		r.queryParams = cloneURLValues(values)
	}
	return r
}

func (r httpRequest) WithFormBody(form map[string]string) HTTPRequest {
	formData := make(url.Values)
	for k, v := range form {
		formData.Set(k, v)
	}
	r.body = formData.Encode()
	return r.AndHeader("Content-Type", "application/x-www-form-urlencoded")
}

func (r httpRequest) WithJSONBody(body any) HTTPRequest {
	r.body = body
	return r.AndHeader("Content-Type", "application/json")
}

func (r httpRequest) WithBody(body any) HTTPRequest {
	r.body = body
	return r
}

func (r httpRequest) WithContentType(contentType string) HTTPRequest {
	return r.AndHeader("Content-Type", contentType)
}

func (r httpRequest) WithResult(result any) HTTPRequest {
	_, ok1 := result.(io.Writer)
	_, ok2 := result.(io.WriteCloser)
	if !ok1 && !ok2 && reflect.ValueOf(result).Kind() != reflect.Ptr {
		panic(fmt.Errorf(`result must be defined by a pointer`))
	}
	r.resultDef = result
	return r
}

func (r httpRequest) WithTimeout(timeout time.Duration) HTTPRequest {
	r.timeout = timeout
	return r
}

func (r httpRequest) WithParamsInBody() HTTPRequest {
	if !r.IsMutating() || r.body != nil || len(r.queryParams) == 0 {
		return r
	}
	body := ValuesToMap(r.queryParams)
	return r.WithQueryValues(nil).WithJSONBody(body)
}
