package requester_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lskk/go-request/pkg/client"
	"github.com/lskk/go-request/pkg/download"
	"github.com/lskk/go-request/pkg/notify"
	"github.com/lskk/go-request/pkg/pending"
	"github.com/lskk/go-request/pkg/redirect"
	"github.com/lskk/go-request/pkg/request"
	. "github.com/lskk/go-request/pkg/requester"
)

type loadingRecorder struct {
	lock   sync.Mutex
	states []bool
}

func (r *loadingRecorder) Callback(loading bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = append(r.states, loading)
}

func (r *loadingRecorder) States() []bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]bool(nil), r.states...)
}

func newTestRequester(configs ...Config) (*Requester, *httpmock.MockTransport, *notify.Recorder) {
	c, transport := client.NewMockedClient()
	recorder := notify.NewRecorder()
	configs = append([]Config{WithNotifier(recorder)}, configs...)
	return New(c.WithBaseURL("https://example.com"), configs...), transport, recorder
}

func blockingResponder(started chan<- struct{}) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		if started != nil {
			started <- struct{}{}
		}
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
}

func TestRequest_Success(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	body := `{"success":true,"data":{"id":1,"name":"foo"}}`
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewStringResponder(200, body))

	loading := &loadingRecorder{}
	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithLoadingCb(loading.Callback))
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, result.Kind)
	assert.False(t, result.Notified)

	// Payload is returned unchanged
	assert.Equal(t, body, string(result.Payload.Raw))
	assert.True(t, result.Payload.Success)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "foo"}, result.Payload.Data)
	assert.Equal(t, 200, result.Payload.StatusCode)

	// Loading
	assert.Equal(t, []bool{true, false}, loading.States())
	assert.Equal(t, []string{"loader:open", "loader:close"}, recorder.Events())
}

func TestRequest_HideLoading(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewStringResponder(200, `{"success":true}`))

	loading := &loadingRecorder{}
	_, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithShowLoading(false), WithLoadingCb(loading.Callback))
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, loading.States())
	assert.Empty(t, recorder.Events())
}

func TestRequest_Download(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sink, err := download.Open(ctx, "mem://")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, sink.Close())
	}()

	r, transport, recorder := newTestRequester(WithDownloadSink(sink))
	transport.RegisterResponder("GET", "https://example.com/api/export", func(req *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, "a,b\n1,2\n")
		res.Header.Set("Content-Type", "text/csv")
		res.Header.Set("Content-Disposition", `attachment; filename="report.csv"`)
		return res, nil
	})

	result, err := r.Request(ctx, request.NewHTTPRequest().WithGet("/api/export"))
	require.NoError(t, err)
	assert.Equal(t, KindDownload, result.Kind)
	assert.Equal(t, "report.csv", result.Filename)
	assert.Equal(t, "a,b\n1,2\n", string(result.Payload.Raw))
	assert.Equal(t, []string{"loader:open", "loader:close"}, recorder.Events())

	content, err := sink.Read(ctx, result.DownloadKey)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))
}

func TestRequest_Warning(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		body     string
		opts     []Option
		expected notify.Message
	}{
		{
			name:     "payload message",
			body:     `{"success":false,"errorMessage":"wrong password"}`,
			opts:     []Option{WithAction("Login")},
			expected: notify.Message{Type: notify.TypeWarning, Text: "Login: wrong password", Duration: 2 * time.Second, Closable: true},
		},
		{
			name:     "custom message",
			body:     `{"success":false,"errorMessage":"wrong password"}`,
			opts:     []Option{WithAction("Login"), WithWarningMsg("check your credentials")},
			expected: notify.Message{Type: notify.TypeWarning, Text: "Login: check your credentials", Duration: 2 * time.Second, Closable: true},
		},
		{
			name:     "default message",
			body:     `{"success":false}`,
			expected: notify.Message{Type: notify.TypeWarning, Text: "Request: Operation failed", Duration: 2 * time.Second, Closable: true},
		},
		{
			name:     "not a JSON",
			body:     `<html></html>`,
			expected: notify.Message{Type: notify.TypeWarning, Text: "Request: Operation failed", Duration: 2 * time.Second, Closable: true},
		},
		{
			name:     "system error",
			body:     `{"success":false,"errorMessage":"系统错误"}`,
			expected: notify.Message{Type: notify.TypeError, Text: "Request: 系统错误", Duration: 2 * time.Second, Closable: true},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			r, transport, recorder := newTestRequester()
			transport.RegisterResponder("POST", "https://example.com/api/login", httpmock.NewStringResponder(200, c.body))

			result, err := r.Request(context.Background(), request.NewHTTPRequest().WithPost("/api/login"), c.opts...)
			require.NoError(t, err)
			assert.Equal(t, KindWarning, result.Kind)
			assert.True(t, result.Notified)
			assert.Equal(t, c.body, string(result.Payload.Raw))
			assert.Equal(t, []notify.Message{c.expected}, recorder.Messages())
			assert.Equal(t, []string{
				"loader:open",
				"loader:close",
				"closeAll",
				fmt.Sprintf("message:%s:%s", c.expected.Type, c.expected.Text),
			}, recorder.Events())
		})
	}
}

func TestRequest_ThrowWarningError(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewStringResponder(200, `{"success":false,"errorCode":500,"errorMessage":"failed"}`))

	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithShowWarning(false), WithThrowWarningError(true))
	require.Error(t, err)
	assert.Equal(t, KindWarning, result.Kind)
	assert.False(t, result.Notified)
	assert.Equal(t, "{\n  \"success\": false,\n  \"errorCode\": 500,\n  \"errorMessage\": \"failed\"\n}", err.Error())

	var warningErr *WarningError
	require.ErrorAs(t, err, &warningErr)
	assert.Equal(t, 500, warningErr.Payload.Code())
	assert.Equal(t, []string{"loader:open", "loader:close"}, recorder.Events())
}

func TestRequest_WarningSuppressed(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewStringResponder(200, `{"success":false}`))

	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithShowWarning(false))
	require.NoError(t, err)
	assert.Equal(t, KindSuppressed, result.Kind)
	assert.False(t, result.Notified)
	assert.Empty(t, recorder.Messages())
}

func TestRequest_HTTPError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status   int
		expected string
	}{
		{400, "Report: bad request"},
		{401, "Report: login expired, please log in again"},
		{403, "Report: access denied"},
		{404, "Report: request address not found"},
		{500, "Report: server busy"},
		{502, "Report: gateway error"},
		{503, "Report: service unavailable, the server is overloaded or under maintenance"},
		{504, "Report: gateway timeout"},
		{418, "Report: i'm a teapot"},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("status %d", c.status), func(t *testing.T) {
			t.Parallel()

			r, transport, recorder := newTestRequester()
			transport.RegisterResponder("GET", "https://example.com/api/report", httpmock.NewStringResponder(c.status, `{"success":false}`))

			// Shown
			result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/report"), WithAction("Report"))
			require.NoError(t, err)
			assert.Equal(t, KindSuppressed, result.Kind)
			assert.True(t, result.Notified)
			assert.Equal(t, []string{"loader:open", "loader:close", "closeAll", "error:" + c.expected}, recorder.Events())

			// Returned
			recorder.Reset()
			result, err = r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/report"), WithAction("Report"), WithShowError(false), WithThrowHTTPError(true))
			require.Error(t, err)
			assert.False(t, result.Notified)
			assert.Equal(t, []string{"loader:open", "loader:close"}, recorder.Events())

			var transportErr *TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, c.expected, transportErr.Message)
			statusCode, ok := client.StatusCodeOf(err)
			assert.True(t, ok)
			assert.Equal(t, c.status, statusCode)
		})
	}
}

func TestRequest_HTTPErrorCustomMessage(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	transport.RegisterResponder("GET", "https://example.com/api/report", httpmock.NewStringResponder(500, ""))

	_, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/report"), WithErrorMsg("Report is not available"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Report is not available"}, recorder.Errors())
}

func TestRequest_Timeout(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	transport.RegisterResponder("GET", "https://example.com/api/slow", blockingResponder(nil))

	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/slow"), WithTimeout(10*time.Millisecond), WithThrowHTTPError(true))
	require.Error(t, err)
	assert.True(t, result.Notified)
	assert.Equal(t, []string{"Request: request timeout, please check the network connection"}, recorder.Errors())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequest_NetworkError(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewErrorResponder(errors.New("connection refused")))
	transport.RegisterResponder("GET", "https://example.com/api/dial", httpmock.NewErrorResponder(errors.New("dial tcp: i/o timeout")))

	_, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"))
	require.NoError(t, err)
	_, err = r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/dial"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Request: network error, please check the network is connected",
		"Request: request timeout, please check the network connection",
	}, recorder.Errors())
}

func TestRequest_FailureSuppressed(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	r, transport, recorder := newTestRequester(WithLogger(zap.New(core)))
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewStringResponder(500, ""))

	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithShowError(false))
	require.NoError(t, err)
	assert.Equal(t, KindSuppressed, result.Kind)
	assert.False(t, result.Notified)
	assert.Empty(t, recorder.Errors())

	// The failure is logged
	require.Equal(t, 1, logs.FilterMessage("request failed").Len())
	assert.Equal(t, "Request: server busy", logs.FilterMessage("request failed").All()[0].ContextMap()["message"])
}

func TestRequest_CancelDuplicate(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester()
	started := make(chan struct{}, 1)
	var calls atomic.Int64
	transport.RegisterResponder("GET", "=~^https://example.com/api/list", func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return blockingResponder(started)(req)
		}
		return httpmock.NewStringResponse(200, `{"success":true,"data":"second"}`), nil
	})

	// First request is in flight
	firstResult := make(chan Result, 1)
	go func() {
		result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/list"), WithCancelDuplicate(false))
		assert.NoError(t, err)
		firstResult <- result
	}()
	<-started
	assert.Equal(t, 1, r.Tracker().Len())

	// Second request with a different query cancels the first one, the key is method and URL only
	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/list").AndQueryParam("page", "2"), WithCancelDuplicate(false))
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, result.Kind)
	assert.Equal(t, "second", result.Payload.Data)

	select {
	case result := <-firstResult:
		assert.Equal(t, KindCanceled, result.Kind)
		assert.Nil(t, result.Payload)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "the first request was not canceled")
	}

	// Cancellation is silent
	assert.Empty(t, recorder.Errors())
	assert.Empty(t, recorder.Messages())
	assert.Equal(t, 0, r.Tracker().Len())
}

func TestRequest_CancelDuplicateWithParams(t *testing.T) {
	t.Parallel()

	r, transport, _ := newTestRequester()
	started := make(chan struct{}, 1)
	transport.RegisterResponder("GET", "=~^https://example.com/api/list", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("page") == "1" {
			return blockingResponder(started)(req)
		}
		return httpmock.NewStringResponse(200, `{"success":true}`), nil
	})

	firstResult := make(chan Result, 1)
	go func() {
		result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/list").AndQueryParam("page", "1"), WithCancelDuplicate(true))
		assert.NoError(t, err)
		firstResult <- result
	}()
	<-started

	// Different params, the first request is kept
	result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/list").AndQueryParam("page", "2"), WithCancelDuplicate(true))
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, result.Kind)
	assert.Equal(t, 1, r.Tracker().Len())

	// Navigation cancels the rest
	assert.Equal(t, 1, r.ClearAllPending())
	assert.Equal(t, KindCanceled, (<-firstResult).Kind)
	assert.Equal(t, 0, r.Tracker().Len())
}

func TestRequest_ClearAllPending(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r, transport, recorder := newTestRequester(WithLogger(zap.New(core)))
	transport.RegisterResponder("GET", "=~^https://example.com/api/block/", blockingResponder(nil))

	results := make(chan Result, 3)
	for i := range 3 {
		go func() {
			result, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet(fmt.Sprintf("/api/block/%d", i)), WithCancelDuplicate(false))
			assert.NoError(t, err)
			results <- result
		}()
	}
	assert.Eventually(t, func() bool {
		return r.Tracker().Len() == 3
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, 3, r.ClearAllPending())
	for range 3 {
		assert.Equal(t, KindCanceled, (<-results).Kind)
	}
	assert.Equal(t, 0, r.Tracker().Len())
	assert.Empty(t, recorder.Errors())
	assert.Equal(t, 3, logs.FilterField(zap.String("reason", string(pending.ReasonCleared))).FilterMessage("pending request canceled").Len())
	assert.Equal(t, 3, logs.FilterMessage("duplicate request canceled").Len())
}

func TestRequest_ParamsInBody(t *testing.T) {
	t.Parallel()

	r, transport, _ := newTestRequester()
	transport.RegisterResponder("POST", "https://example.com/api/login", func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		assert.Empty(t, req.URL.RawQuery)
		assert.JSONEq(t, `{"username":"john","password":"secret"}`, string(body))
		return httpmock.NewStringResponse(200, `{"success":true}`), nil
	})

	reqDef := request.NewHTTPRequest().
		WithPost("/api/login").
		AndQueryParam("username", "john").
		AndQueryParam("password", "secret")
	result, err := r.Request(context.Background(), reqDef)
	require.NoError(t, err)
	assert.Equal(t, KindSuccess, result.Kind)
}

func TestRequest_Redirect(t *testing.T) {
	t.Parallel()

	location := redirect.NewMemoryLocation("https://app.example.com/index.html#/report")
	r, transport, _ := newTestRequester(WithRedirector(redirect.New(location, redirect.WithDelay(time.Millisecond))))
	transport.RegisterResponder("GET", "https://example.com/api/user", httpmock.NewStringResponder(200, `{"success":false,"errorCode":"401","data":{"redirectUrl":"https://sso.example.com/login?app=1"}}`))
	transport.RegisterResponder("GET", "https://example.com/api/report", httpmock.NewStringResponder(401, `{"errorCode":401,"data":{"redirectUrl":"https://sso.example.com/login?app=2"}}`))

	// Success path, delayed
	_, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/user"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(location.Assigned()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "https://sso.example.com/login?app=1&state=%2Freport&redirect_uri=https://app.example.com/index.html", location.Assigned()[0])

	// Failure path, immediate
	_, err = r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/report"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://sso.example.com/login?app=1&state=%2Freport&redirect_uri=https://app.example.com/index.html",
		"https://sso.example.com/login?app=2",
	}, location.Assigned())
}

func TestRequest_InvalidOptions(t *testing.T) {
	t.Parallel()

	r, transport, _ := newTestRequester()
	_, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithAction(""), WithTimeout(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action must not be empty")
	assert.Contains(t, err.Error(), `timeout must be positive, found "0s"`)
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func TestRequest_DefaultOptions(t *testing.T) {
	t.Parallel()

	r, transport, recorder := newTestRequester(WithDefaultOptions(WithAction("App"), WithShowLoading(false)))
	transport.RegisterResponder("GET", "https://example.com/api/item", httpmock.NewStringResponder(404, ""))

	_, err := r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"))
	require.NoError(t, err)
	assert.Equal(t, []string{"closeAll", "error:App: request address not found"}, recorder.Events())

	recorder.Reset()
	_, err = r.Request(context.Background(), request.NewHTTPRequest().WithGet("/api/item"), WithAction("Item"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Item: request address not found"}, recorder.Errors())
}

func TestOptions(t *testing.T) {
	t.Parallel()

	o := DefaultOptions()
	assert.Equal(t, "Request", o.Action)
	assert.True(t, o.ShowWarning)
	assert.True(t, o.ShowError)
	assert.True(t, o.ShowLoading)
	assert.Equal(t, 60*time.Second, o.Timeout)
	assert.False(t, o.ThrowWarningError)
	assert.False(t, o.ThrowHTTPError)
	assert.False(t, o.CancelDuplicate)
	assert.False(t, o.CancelParams)
	assert.NoError(t, o.Validate())

	o = NewOptions(WithCancelDuplicate(true), WithLoadingCb(nil))
	assert.True(t, o.CancelDuplicate)
	assert.True(t, o.CancelParams)
	assert.EqualError(t, o.Validate(), "1 error occurred:\n\t* loading callback must not be nil\n\n")
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "download", KindDownload.String())
	assert.Equal(t, "warning", KindWarning.String())
	assert.Equal(t, "suppressed", KindSuppressed.String())
	assert.Equal(t, "canceled", KindCanceled.String())
}
