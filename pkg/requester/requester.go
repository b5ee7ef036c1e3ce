// Package requester sends requests with loading callbacks, user notifications and duplicate cancellation.
//
// The outcome of each request is classified:
//   - The payload reports success or the response is a file: the payload is returned.
//   - The payload reports a business error: it is shown as a warning and/or returned as *WarningError.
//   - The request failed: the error is shown and/or returned as *TransportError.
//   - The request was canceled by a newer duplicate request: it is silently skipped.
//
// A failure which is neither shown nor returned results in KindSuppressed.
package requester

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lskk/go-request/pkg/notify"
	"github.com/lskk/go-request/pkg/pending"
	"github.com/lskk/go-request/pkg/redirect"
	"github.com/lskk/go-request/pkg/request"
)

// DownloadSink stores downloaded files.
type DownloadSink interface {
	Store(ctx context.Context, filename, contentType string, body []byte) (key string, err error)
}

// Requester sends requests by the request.Sender.
type Requester struct {
	sender            request.Sender
	tracker           *pending.Tracker
	notifier          notify.Notifier
	loader            notify.Loader
	redirector        *redirect.Redirector
	downloads         DownloadSink
	logger            *zap.Logger
	defaults          []Option
	systemErrorMarker string
}

type Config func(*Requester)

// WithTracker sets the pending requests tracker, by default each Requester has own Tracker.
func WithTracker(v *pending.Tracker) Config {
	return func(r *Requester) {
		r.tracker = v
	}
}

// WithNotifier sets the notifier, if it implements the notify.Loader, it is used as the loader too.
func WithNotifier(v notify.Notifier) Config {
	return func(r *Requester) {
		r.notifier = v
		if loader, ok := v.(notify.Loader); ok && r.loader == nil {
			r.loader = loader
		}
	}
}

func WithLoader(v notify.Loader) Config {
	return func(r *Requester) {
		r.loader = v
	}
}

// WithRedirector enables redirect to the login page when the session expires.
func WithRedirector(v *redirect.Redirector) Config {
	return func(r *Requester) {
		r.redirector = v
	}
}

// WithDownloadSink stores downloaded files to the sink.
func WithDownloadSink(v DownloadSink) Config {
	return func(r *Requester) {
		r.downloads = v
	}
}

func WithLogger(v *zap.Logger) Config {
	return func(r *Requester) {
		r.logger = v
	}
}

// WithDefaultOptions sets options applied to each request, before the request options.
func WithDefaultOptions(opts ...Option) Config {
	return func(r *Requester) {
		r.defaults = append(r.defaults, opts...)
	}
}

// WithSystemErrorMarker sets the errorMessage which is shown as an error instead of a warning.
func WithSystemErrorMarker(v string) Config {
	return func(r *Requester) {
		r.systemErrorMarker = v
	}
}

// New creates the Requester.
func New(sender request.Sender, configs ...Config) *Requester {
	r := &Requester{sender: sender, logger: zap.NewNop(), systemErrorMarker: SystemErrorMarker}
	for _, c := range configs {
		c(r)
	}
	if r.tracker == nil {
		r.tracker = pending.NewTracker(pending.WithLogger(r.logger))
	}
	if r.notifier == nil {
		r.notifier = notify.Nop{}
	}
	if r.loader == nil {
		r.loader = notify.Nop{}
	}
	return r
}

// Tracker returns the pending requests tracker.
func (r *Requester) Tracker() *pending.Tracker {
	return r.tracker
}

// ClearAllPending cancels all in-flight requests tracked for duplicate cancellation, for example on navigation.
func (r *Requester) ClearAllPending() int {
	return r.tracker.ClearAll()
}

// Request sends the request and classifies the outcome.
// The request result definition is replaced, the response body is available in the Result.Payload.
func (r *Requester) Request(ctx context.Context, reqDef request.HTTPRequest, opts ...Option) (Result, error) {
	o := DefaultOptions()
	for _, opt := range r.defaults {
		opt(&o)
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Validate(); err != nil {
		return Result{}, err
	}

	var body []byte
	reqDef = reqDef.WithParamsInBody().WithTimeout(o.Timeout).WithResult(&body)

	// Start
	o.LoadingCb(true)
	if o.ShowLoading {
		r.loader.Open()
	}
	sendCtx := ctx
	var entry *pending.Entry
	if o.CancelDuplicate {
		sendCtx, entry = r.tracker.Add(ctx, pending.KeyOf(reqDef, o.CancelParams))
	}

	res, _, err := r.sender.Send(sendCtx, reqDef)

	// End
	o.LoadingCb(false)
	if o.ShowLoading {
		r.loader.Close()
	}
	if entry != nil {
		entry.Done()
	}

	if err != nil {
		return r.handleError(o, reqDef, res, body, err)
	}
	return r.handleResponse(ctx, o, res, body)
}

func (r *Requester) handleError(o Options, reqDef request.HTTPRequest, res *http.Response, body []byte, err error) (Result, error) {
	logger := r.logger.With(zap.String("action", o.Action), zap.String("request.method", reqDef.Method()), zap.String("request.url", reqDef.URL()))

	// Cancellation, always silent
	if errors.Is(err, context.Canceled) {
		if reason, ok := pending.CancelReason(err); ok {
			logger.Debug("duplicate request canceled", zap.String("reason", string(reason)))
		} else {
			logger.Debug("request canceled", zap.Error(err))
		}
		return Result{Kind: KindCanceled}, nil
	}

	// Business error is passed as it is
	var warningErr *WarningError
	if errors.As(err, &warningErr) {
		return Result{Kind: KindWarning, Payload: warningErr.Payload}, err
	}

	// Session expired, the error body can carry the login address
	var payload *Payload
	if res != nil {
		payload, _ = decodePayload(res, body)
		if r.redirector != nil {
			r.redirector.HandleFailure(payload.Code(), payload.DataString("redirectUrl"))
		}
	}

	msg := errorMessage(o, err)
	logger.Warn("request failed", zap.String("message", msg), zap.Error(err))

	result := Result{Kind: KindSuppressed, Payload: payload}
	if o.ShowError {
		r.notifier.CloseAll()
		r.notifier.ShowError(msg)
		result.Notified = true
	}
	if o.ThrowHTTPError {
		return result, &TransportError{Message: msg, Err: err}
	}
	return result, nil
}
