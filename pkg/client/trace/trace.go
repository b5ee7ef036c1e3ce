// Package trace extends the httptrace.ClientTrace and adds additional HTTPRequest hooks.
// A custom ClientTrace definition can be registered in the client.Client by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"

	"github.com/lskk/go-request/pkg/request"
)

// Factory creates ClientTrace hooks for a request.
type Factory func(ctx context.Context, request request.HTTPRequest) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of an outgoing HTTPRequest.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request begins. It includes redirects.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the request completes. It includes redirects.
	HTTPRequestDone func(response *http.Response, err error)
	// RequestProcessed is called when Client.Send method is done.
	RequestProcessed func(result any, err error)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Both hooks are called, the old one first.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	composeHooks(tv, ov)
	composeHooks(tv.Field(0), ov.Field(0))
}

func composeHooks(tv, ov reflect.Value) {
	structType := tv.Type()
	for i := range structType.NumField() {
		tf := tv.Field(i)
		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		of := ov.Field(i)
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call, otherwise it creates a recursive call cycle.
		tfCopy := reflect.ValueOf(tf.Interface())
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			of.Call(args)
			return tfCopy.Call(args)
		})
		tf.Set(newFunc)
	}
}
