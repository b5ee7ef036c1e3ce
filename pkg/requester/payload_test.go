package requester

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	t.Parallel()

	res := &http.Response{StatusCode: http.StatusOK, Header: http.Header{"X-Foo": []string{"bar"}}}
	p, err := decodePayload(res, []byte(`{"success":false,"errorCode":"401","data":{"redirectUrl":"https://sso/login?a=1","count":5}}`))
	require.NoError(t, err)
	assert.False(t, p.Success)
	assert.Equal(t, 401, p.Code())
	assert.Equal(t, "https://sso/login?a=1", p.DataString("redirectUrl"))
	assert.Equal(t, "5", p.DataString("count"))
	assert.Equal(t, "", p.DataString("missing"))
	assert.Equal(t, http.StatusOK, p.StatusCode)
	assert.Equal(t, "bar", p.Header.Get("X-Foo"))

	// Empty body
	p, err = decodePayload(res, nil)
	require.NoError(t, err)
	assert.False(t, p.Success)
	assert.Equal(t, 0, p.Code())

	// Invalid body
	p, err = decodePayload(res, []byte(`<html>`))
	require.Error(t, err)
	assert.False(t, p.Success)
	assert.Equal(t, "<html>", string(p.Raw))
}

func TestPayload_JSON(t *testing.T) {
	t.Parallel()

	// Raw body, key order is kept
	p := &Payload{Raw: []byte(`{"success":false,"errorMessage":"failed","errorCode":1}`)}
	assert.Equal(t, "{\n  \"success\": false,\n  \"errorMessage\": \"failed\",\n  \"errorCode\": 1\n}", p.JSON())

	// No raw body
	p = &Payload{ErrorMessage: "failed"}
	assert.Equal(t, "{\n  \"success\": false,\n  \"errorMessage\": \"failed\"\n}", p.JSON())
}

func TestStatusMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "request address not found", StatusMessage(http.StatusNotFound))
	assert.Equal(t, "too many requests", StatusMessage(http.StatusTooManyRequests))
	assert.Equal(t, "operation failed", StatusMessage(999))
}
