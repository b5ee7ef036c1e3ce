// Package otel provides OpenTelemetry tracing and metrics for HTTP client requests.
//
// The package provides 2 levels of telemetry:
// 1. Low-level telemetry:
//   - It provides span and metrics for every sent HTTP request, including redirects.
//   - Span name is "http.request", request parts have own spans, for example: "http.dns", "http.tls", "http.getconn".
//   - Metrics names start with "lskk.request.http." (httpPrefix const).
//
// 2. High-level telemetry:
//   - It provides span and metrics for each "logical" request sent by the client.
//   - Main span "lskk.request.client.request" wraps all redirects together.
//   - Metrics names start with "lskk.request.client." (clientPrefix const).
//
// For full list of metrics see the allMeters struct.
package otel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/lskk/go-request/pkg/client/trace"
	"github.com/lskk/go-request/pkg/request"
)

const (
	traceAppName     = "github.com/lskk/go-request"
	attrResourceName = attribute.Key("resource.name")
	// Low-level tracing, for each redirect.
	httpSpanPrefix      = "http."
	httpRequestSpanName = httpSpanPrefix + "request"
	// High-level tracing.
	clientSpanPrefix      = "lskk.request.client."
	clientRequestSpanName = clientSpanPrefix + "request"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates the trace.Factory which reports spans to the tracerProvider and metrics to the meterProvider.
// A nil provider is replaced by a noop implementation.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName))

	return func(rootCtx context.Context, reqDef request.HTTPRequest) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, reqDef)

		// Create root span and metrics, it may contain multiple HTTP requests (redirects).
		{
			var rootSpan otelTrace.Span

			// Metrics
			startTime := time.Now()
			meters.client.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.definition...))

			// Tracing
			rootCtx, rootSpan = tracer.Start(
				rootCtx,
				clientRequestSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrResourceName.String(attrs.definitionPath),
					attrSpanKind.String(attrSpanKindValueClient),
					attrSpanType.String(attrSpanTypeValueHTTP),
				),
				otelTrace.WithAttributes(attrs.definition...),
				otelTrace.WithAttributes(attrs.definitionExtra...),
			)
			tc.RequestProcessed = func(result any, err error) {
				elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)
				attrs.SetFromError(err)

				// Metrics
				var meterAttrs []attribute.KeyValue
				meterAttrs = append(meterAttrs, attrs.definition...)
				meterAttrs = append(meterAttrs, attrs.httpResponse...)
				meterAttrs = append(meterAttrs, attrs.httpResponseError...)
				meters.client.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.definition...)) // same attributes/dimensions as above (+1)!
				meters.client.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(meterAttrs...))

				// Tracing
				rootSpan.SetAttributes(attrs.httpResponse...)
				rootSpan.SetAttributes(attrs.httpResponseExtra...)
				endSpan(rootSpan, err, otelTrace.WithStackTrace(err != nil))
			}
		}

		// Handle HTTP requests
		var httpCtx context.Context
		var httpRequestSpan otelTrace.Span
		receive := &phase{tracer: tracer, name: httpReceiveSpanName}
		{
			var httpRequestStart time.Time
			tc.HTTPRequestStart = func(req *http.Request) {
				// Create HTTP request span
				httpCtx, httpRequestSpan = tracer.Start(
					rootCtx,
					httpRequestSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrSpanKind.String(attrSpanKindValueClient),
						attrSpanType.String(attrSpanTypeValueHTTP),
					),
				)

				// Inject trace headers
				if cfg.propagators != nil {
					cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
				}

				// Attrs
				httpRequestStart = time.Now()
				attrs.SetFromRequest(req)
				httpRequestSpan.SetAttributes(attrResourceName.String(req.URL.Path))

				// Metrics
				meters.http.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.httpRequest...))

				// Tracing
				httpRequestSpan.SetAttributes(attrs.httpRequest...)
				httpRequestSpan.SetAttributes(attrs.httpRequestExtra...)
			}
			tc.GotFirstResponseByte = func() {
				receive.start(httpCtx)
			}
			tc.HTTPRequestDone = func(res *http.Response, err error) {
				elapsedTime := float64(time.Since(httpRequestStart)) / float64(time.Millisecond)
				attrs.SetFromResponse(res)

				// Metrics
				meters.http.inFlight.Add(
					rootCtx,
					-1,
					otelMetric.WithAttributes(attrs.httpRequest...), // same attributes/dimensions as in HTTPRequestStart!
				)
				meters.http.duration.Record(
					rootCtx,
					elapsedTime,
					otelMetric.WithAttributes(attrs.httpRequest...),
					otelMetric.WithAttributes(attrs.httpResponse...),
				)

				// Tracing
				receive.end(err)
				if httpRequestSpan != nil {
					httpRequestSpan.SetAttributes(attrs.httpResponse...)
					httpRequestSpan.SetAttributes(attrs.httpResponseExtra...)
					if err == nil && res != nil && res.StatusCode >= http.StatusBadRequest {
						err = fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
					}
					endSpan(httpRequestSpan, err)
					httpRequestSpan = nil
				}
			}
		}

		// Low-level tracing of the request phases, spans are children of the current HTTP request span.
		registerPhases(tc, tracer, func() context.Context { return httpCtx })

		return rootCtx, tc
	}
}
