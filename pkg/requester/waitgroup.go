package requester

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"

	"github.com/lskk/go-request/pkg/request"
)

// WaitGroupConcurrencyLimit is the maximum number of concurrent requests in one WaitGroup.
const WaitGroupConcurrencyLimit = 8

// WaitGroup allows sending requests concurrently using the Send method
// and wait until all requests are completed using the Wait method.
//
// The request starts immediately after calling the Send method.
// If an error occurs, sending will not stop, all requests will be sent.
// Wait method at the end returns all errors that have occurred, if any.
type WaitGroup struct {
	ctx       context.Context
	requester *Requester
	wg        *sync.WaitGroup     // wait for all
	sem       *semaphore.Weighted // limit concurrency

	lock *sync.Mutex // for err
	err  *multierror.Error
}

// NewWaitGroup creates new WaitGroup.
func (r *Requester) NewWaitGroup(ctx context.Context) *WaitGroup {
	return r.NewWaitGroupWithLimit(ctx, WaitGroupConcurrencyLimit)
}

// NewWaitGroupWithLimit creates new WaitGroup with given concurrent requests limit.
func (r *Requester) NewWaitGroupWithLimit(ctx context.Context, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, requester: r, wg: &sync.WaitGroup{}, sem: semaphore.NewWeighted(limit), lock: &sync.Mutex{}}
}

// Wait for all requests to complete. All errors that have occurred will be returned.
func (g *WaitGroup) Wait() error {
	g.wg.Wait()
	// If there is only one error, then unwrap multierror
	if g.err != nil && len(g.err.Errors) == 1 {
		return g.err.Errors[0]
	}
	return g.err.ErrorOrNil()
}

// Send a concurrent request, the onResult callback is optional.
func (g *WaitGroup) Send(reqDef request.HTTPRequest, onResult func(Result), opts ...Option) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		// Limit number of concurrent requests
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			g.appendErr(err)
			return
		}
		defer g.sem.Release(1)

		result, err := g.requester.Request(g.ctx, reqDef, opts...)
		if err != nil {
			g.appendErr(err)
		}
		if onResult != nil {
			onResult(result)
		}
	}()
}

func (g *WaitGroup) appendErr(err error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.err = multierror.Append(g.err, err)
}
