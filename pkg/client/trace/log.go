package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lskk/go-request/pkg/request"
)

// ZapTracer logs each stage of a request to the logger at debug level.
// Every logical request gets its own "request.id" field.
func ZapTracer(logger *zap.Logger) Factory {
	return func(ctx context.Context, reqDef request.HTTPRequest) (context.Context, *ClientTrace) {
		log := logger.With(
			zap.String("request.id", uuid.NewString()),
			zap.String("request.method", reqDef.Method()),
			zap.String("request.url", reqDef.URL()),
		)

		var connStartTime, startTime, doneTime time.Time

		t := &ClientTrace{}
		t.ConnectStart = func(network, addr string) {
			connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			if info.Reused {
				log.Debug("http connection reused", zap.Bool("conn.idle", info.WasIdle), zap.Duration("conn.idle_time", info.IdleTime))
			} else {
				log.Debug("http connection created", zap.Duration("duration", time.Since(connStartTime)))
			}
		}
		t.HTTPRequestStart = func(r *http.Request) {
			startTime = time.Now()
			log.Debug("http request started", zap.String("url", r.URL.String()))
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			doneTime = time.Now()
			fields := []zap.Field{zap.Duration("duration", doneTime.Sub(startTime))}
			if r != nil {
				fields = append(fields, zap.Int("status", r.StatusCode))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			log.Debug("http request done", fields...)
		}
		t.RequestProcessed = func(result any, err error) {
			fields := []zap.Field{zap.Duration("duration", time.Since(doneTime))}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			log.Debug("http response processed", fields...)
		}
		return ctx, t
	}
}
