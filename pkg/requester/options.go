package requester

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

const (
	DefaultAction  = "Request"
	DefaultTimeout = 60 * time.Second
)

// Options of a single request.
type Options struct {
	// Action is a label of the request, it prefixes all messages.
	Action string
	// ShowWarning shows a business error (the request succeeded, but the payload reports a failure).
	ShowWarning bool
	// ShowError shows a transport error (network error, timeout, HTTP error status).
	ShowError bool
	// Timeout of the request.
	Timeout time.Duration
	// ShowLoading opens the Loader while the request is in flight.
	ShowLoading bool
	// LoadingCb is called with true when the request starts and with false when it settles.
	LoadingCb func(loading bool)
	// ThrowWarningError returns a business error as *WarningError, if it is not shown.
	ThrowWarningError bool
	// ThrowHTTPError returns a transport error as *TransportError.
	ThrowHTTPError bool
	// WarningMsg replaces the business error message from the payload.
	WarningMsg string
	// ErrorMsg replaces the whole transport error message.
	ErrorMsg string
	// CancelDuplicate cancels an in-flight request with the same key.
	CancelDuplicate bool
	// CancelParams includes query and body to the de-duplication key,
	// so requests with different parameters don't cancel each other.
	CancelParams bool
}

type Option func(*Options)

// DefaultOptions returns options used if they are not modified.
func DefaultOptions() Options {
	return Options{
		Action:      DefaultAction,
		ShowWarning: true,
		ShowError:   true,
		Timeout:     DefaultTimeout,
		ShowLoading: true,
		LoadingCb:   func(bool) {},
	}
}

// NewOptions applies the options to the DefaultOptions.
func NewOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate returns all invalid options.
func (o Options) Validate() error {
	var errs *multierror.Error
	if o.Action == "" {
		errs = multierror.Append(errs, fmt.Errorf("action must not be empty"))
	}
	if o.Timeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf(`timeout must be positive, found "%s"`, o.Timeout))
	}
	if o.LoadingCb == nil {
		errs = multierror.Append(errs, fmt.Errorf("loading callback must not be nil"))
	}
	return errs.ErrorOrNil()
}

func WithAction(v string) Option {
	return func(o *Options) {
		o.Action = v
	}
}

func WithShowWarning(v bool) Option {
	return func(o *Options) {
		o.ShowWarning = v
	}
}

func WithShowError(v bool) Option {
	return func(o *Options) {
		o.ShowError = v
	}
}

func WithTimeout(v time.Duration) Option {
	return func(o *Options) {
		o.Timeout = v
	}
}

func WithShowLoading(v bool) Option {
	return func(o *Options) {
		o.ShowLoading = v
	}
}

func WithLoadingCb(fn func(loading bool)) Option {
	return func(o *Options) {
		o.LoadingCb = fn
	}
}

func WithThrowWarningError(v bool) Option {
	return func(o *Options) {
		o.ThrowWarningError = v
	}
}

func WithThrowHTTPError(v bool) Option {
	return func(o *Options) {
		o.ThrowHTTPError = v
	}
}

func WithWarningMsg(v string) Option {
	return func(o *Options) {
		o.WarningMsg = v
	}
}

func WithErrorMsg(v string) Option {
	return func(o *Options) {
		o.ErrorMsg = v
	}
}

// WithCancelDuplicate enables cancellation of an in-flight request with the same method and URL.
// If withParams is set, the query and body are part of the key too.
func WithCancelDuplicate(withParams bool) Option {
	return func(o *Options) {
		o.CancelDuplicate = true
		o.CancelParams = withParams
	}
}
