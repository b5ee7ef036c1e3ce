package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/semconv/v1.18.0/httpconv"

	"github.com/lskk/go-request/pkg/request"
)

const (
	maskedAttrValue = "****"
)

type attributes struct {
	config config
	// definitionPath is used as the resource name
	definitionPath string
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
	// httpResponseError attributes for metrics
	httpResponseError []attribute.KeyValue
	// lastResponse is the response of the last redirect
	lastResponse *http.Response
}

func newAttributes(cfg config, reqDef request.HTTPRequest) *attributes {
	out := &attributes{config: cfg}
	reqURL, err := url.Parse(reqDef.URL())
	if err != nil {
		reqURL = &url.URL{Path: reqDef.URL()}
	}
	reqURL = out.redactURL(reqURL)
	out.definitionPath = mustURLPathUnescape(reqURL.Path)

	var resultType string
	if v := reflect.TypeOf(reqDef.ResultDef()); v != nil {
		resultType = v.String()
	}

	// Definition base
	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", reqDef.Method()),
		attribute.String("definition.result.type", resultType),
		attribute.String("definition.url.full", mustURLPathUnescape(reqURL.String())),
		attribute.String("definition.url.path", out.definitionPath),
		attribute.String("definition.url.host", reqURL.Host),
	}

	// Definition params
	var headerAttrs []attribute.KeyValue
	for k, v := range reqDef.RequestHeader() {
		value := strings.Join(v, ";")
		if _, found := cfg.redactedHeaders[strings.ToLower(k)]; found {
			value = maskedAttrValue
		}
		headerAttrs = append(headerAttrs, attribute.String("definition.header."+k, value))
	}
	var queryAttrs []attribute.KeyValue
	for k, v := range reqDef.QueryParams() {
		value := strings.Join(v, ";")
		if _, found := cfg.redactedQueryParams[strings.ToLower(k)]; found {
			value = maskedAttrValue
		}
		queryAttrs = append(queryAttrs, attribute.String("definition.params.query."+k, value))
	}
	sortAttrs(headerAttrs)
	sortAttrs(queryAttrs)
	out.definitionExtra = append(out.definitionExtra, headerAttrs...)
	out.definitionExtra = append(out.definitionExtra, queryAttrs...)
	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	// Base, the URL is redacted
	reqCopy := *req
	reqCopy.URL = v.redactURL(req.URL)
	v.httpRequest = httpconv.ClientRequest(&reqCopy)

	// Extra
	var attrs []attribute.KeyValue
	for key, values := range req.Header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if key == "user-agent" {
			// Skip, it is already present from httpconv
			continue
		}
		if _, found := v.config.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String("http.header."+key, value))
	}
	sortAttrs(attrs)
	v.httpRequestExtra = attrs
}

func (v *attributes) SetFromResponse(res *http.Response) {
	v.lastResponse = res
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
		return
	}

	// Base
	v.httpResponse = httpconv.ClientResponse(res)

	// Extra
	var attrs []attribute.KeyValue
	for key, values := range res.Header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if _, found := v.config.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		attrs = append(attrs, attribute.String("http.response.header."+key, value))
	}
	sortAttrs(attrs)
	v.httpResponseExtra = attrs
}

func (v *attributes) SetFromError(err error) {
	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseError = []attribute.KeyValue{
		attribute.Bool("http.response.isSuccess", isSuccess(v.lastResponse, err)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	}
}

// redactURL returns a copy of the URL with redacted query parameters.
func (v *attributes) redactURL(in *url.URL) *url.URL {
	out := *in
	if len(v.config.redactedQueryParams) == 0 || out.RawQuery == "" {
		return &out
	}
	query := out.Query()
	for k := range query {
		if _, found := v.config.redactedQueryParams[strings.ToLower(k)]; found {
			query.Set(k, maskedAttrValue)
		}
	}
	out.RawQuery = query.Encode()
	return &out
}

func sortAttrs(attrs []attribute.KeyValue) {
	sort.SliceStable(attrs, func(i, j int) bool {
		return attrs[i].Key < attrs[j].Key
	})
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}
