package otel

import (
	"context"
	"crypto/tls"
	"net/http/httptrace"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/lskk/go-request/pkg/client/trace"
)

const (
	httpDNSSpanName          = httpSpanPrefix + "dns"
	httpGetConnSpanName      = httpSpanPrefix + "getconn"
	httpConnectSpanName      = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName = httpSpanPrefix + "tls"
	httpHeadersSpanName      = httpSpanPrefix + "headers"
	httpSendSpanName         = httpSpanPrefix + "send"
	httpReceiveSpanName      = httpSpanPrefix + "receive"

	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnectionIdleTime     = attribute.Key("http.conn.idletime")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
)

// phase is a span of one part of an HTTP request, for example the DNS lookup.
// Only one span per phase is open at a time, end without start is ignored.
type phase struct {
	tracer otelTrace.Tracer
	name   string
	span   otelTrace.Span
}

func (p *phase) start(ctx context.Context, attrs ...attribute.KeyValue) {
	_, p.span = p.tracer.Start(ctx, p.name, otelTrace.WithSpanKind(otelTrace.SpanKindClient), otelTrace.WithAttributes(attrs...))
}

func (p *phase) started() bool {
	return p.span != nil
}

func (p *phase) end(err error, attrs ...attribute.KeyValue) {
	if p.span == nil {
		return
	}
	p.span.SetAttributes(attrs...)
	endSpan(p.span, err)
	p.span = nil
}

func endSpan(span otelTrace.Span, err error, opts ...otelTrace.SpanEndOption) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(opts...)
}

// registerPhases sets httptrace hooks, each phase span is a child of the context returned by parentCtx.
func registerPhases(tc *trace.ClientTrace, tracer otelTrace.Tracer, parentCtx func() context.Context) {
	newPhase := func(name string) *phase {
		return &phase{tracer: tracer, name: name}
	}

	dns := newPhase(httpDNSSpanName)
	tc.DNSStart = func(info httptrace.DNSStartInfo) {
		dns.start(parentCtx(), semconv.NetHostName(info.Host))
	}
	tc.DNSDone = func(info httptrace.DNSDoneInfo) {
		addrs := make([]string, 0, len(info.Addrs))
		for _, addr := range info.Addrs {
			addrs = append(addrs, addr.String())
		}
		dns.end(info.Err, attrDNSAddresses.String(strings.Join(addrs, ";")))
	}

	getConn := newPhase(httpGetConnSpanName)
	tc.GetConn = func(host string) {
		getConn.start(parentCtx(), semconv.NetHostName(host))
	}
	tc.GotConn = func(info httptrace.GotConnInfo) {
		attrs := []attribute.KeyValue{
			attrRemoteAddr.String(info.Conn.RemoteAddr().String()),
			attrLocalAddr.String(info.Conn.LocalAddr().String()),
			attrConnectionReused.Bool(info.Reused),
			attrConnectionWasIdle.Bool(info.WasIdle),
		}
		if info.WasIdle {
			attrs = append(attrs, attrConnectionIdleTime.String(info.IdleTime.String()))
		}
		getConn.end(nil, attrs...)
	}

	connect := newPhase(httpConnectSpanName)
	tc.ConnectStart = func(network, addr string) {
		connect.start(parentCtx(), attrRemoteAddr.String(addr), attrConnectionStartNetwork.String(network))
	}
	tc.ConnectDone = func(network, addr string, err error) {
		connect.end(err, attrConnectionDoneAddr.String(addr), attrConnectionDoneNetwork.String(network))
	}

	// Not reported if the http2.Transport is used directly, without upgrade from http.Transport.
	handshake := newPhase(httpTLSHandshakeSpanName)
	tc.TLSHandshakeStart = func() {
		handshake.start(parentCtx())
	}
	tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
		handshake.end(err)
	}

	headers := newPhase(httpHeadersSpanName)
	send := newPhase(httpSendSpanName)
	tc.WroteHeaderField = func(_ string, _ []string) {
		if !headers.started() {
			headers.start(parentCtx())
		}
	}
	tc.WroteHeaders = func() {
		headers.end(nil)
		send.start(parentCtx())
	}
	tc.WroteRequest = func(info httptrace.WroteRequestInfo) {
		send.end(info.Err)
	}
}
