// Package redirect implements the hard redirect to the login page when the session expires.
package redirect

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// UnauthorizedCode is the business error code of an expired session.
	UnauthorizedCode = 401
	// DefaultDelay before the redirect, so the current message can be shown.
	DefaultDelay = 200 * time.Millisecond
)

// Location is the address of the host application, for example the browser top window location.
type Location interface {
	// Href returns the current full address, including the fragment.
	Href() string
	// Assign navigates to the address.
	Assign(url string)
}

// Redirector redirects the Location to the login page.
type Redirector struct {
	location Location
	delay    time.Duration
	logger   *zap.Logger
}

type Option func(*Redirector)

func WithDelay(v time.Duration) Option {
	return func(r *Redirector) {
		r.delay = v
	}
}

func WithLogger(v *zap.Logger) Option {
	return func(r *Redirector) {
		r.logger = v
	}
}

func New(location Location, opts ...Option) *Redirector {
	r := &Redirector{location: location, delay: DefaultDelay, logger: zap.NewNop()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// HandleSuccess processes a successful response with the business error code.
// If the session expired, the redirect is scheduled after the delay and the timer is returned.
// The login page gets the current fragment as "state" and the current address as "redirect_uri".
func (r *Redirector) HandleSuccess(errorCode int, redirectURL string) (*time.Timer, bool) {
	if errorCode != UnauthorizedCode {
		return nil, false
	}
	return time.AfterFunc(r.delay, func() {
		target := LoginURL(redirectURL, r.location.Href())
		r.logger.Info("session expired, redirecting to login", zap.String("url", target))
		r.location.Assign(target)
	}), true
}

// HandleFailure processes a failed response with the business error code.
// If the session expired, the redirect URL is assigned immediately, as it is.
func (r *Redirector) HandleFailure(errorCode int, redirectURL string) bool {
	if errorCode != UnauthorizedCode || redirectURL == "" {
		return false
	}
	r.logger.Info("session expired, redirecting to login", zap.String("url", redirectURL))
	r.location.Assign(redirectURL)
	return true
}

// LoginURL composes the login address: "<redirectURL>&state=<escaped fragment>&redirect_uri=<href without fragment>".
func LoginURL(redirectURL, href string) string {
	base, fragment, _ := strings.Cut(href, "#")
	return redirectURL + "&state=" + escapeComponent(fragment) + "&redirect_uri=" + base
}

func escapeComponent(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// MemoryLocation is an in-memory Location, it is used by headless applications and tests.
type MemoryLocation struct {
	lock     sync.Mutex
	href     string
	assigned []string
}

func NewMemoryLocation(href string) *MemoryLocation {
	return &MemoryLocation{href: href}
}

func (l *MemoryLocation) Href() string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.href
}

func (l *MemoryLocation) Assign(v string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.href = v
	l.assigned = append(l.assigned, v)
}

// Assigned returns all assigned addresses in order.
func (l *MemoryLocation) Assigned() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.assigned...)
}
