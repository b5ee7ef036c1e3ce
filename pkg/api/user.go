package api

import (
	"context"
	"fmt"
	"net/url"

	jsoniter "github.com/json-iterator/go"
	"github.com/relvacode/iso8601"

	"github.com/lskk/go-request/pkg/request"
	"github.com/lskk/go-request/pkg/requester"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Credentials of the Login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserInfo is the data of the GetUserInfo response.
type UserInfo struct {
	UserID    string       `json:"userId"`
	UserName  string       `json:"userName"`
	RealName  string       `json:"realName,omitempty"`
	Roles     []string     `json:"roles,omitempty"`
	LastLogin iso8601.Time `json:"lastLoginTime"`
}

// Login sends the credentials in the POST body.
func (a *API) Login(ctx context.Context, credentials Credentials, opts ...requester.Option) (requester.Result, error) {
	reqDef := request.NewHTTPRequest().WithPost(LoginPath).WithJSONBody(credentials)
	return a.requester.Request(ctx, reqDef, append([]requester.Option{requester.WithAction("Login")}, opts...)...)
}

// GetUserInfo loads the user info by the POST body, the loading indicator is hidden.
func (a *API) GetUserInfo(ctx context.Context, data any, opts ...requester.Option) (requester.Result, error) {
	reqDef := request.NewHTTPRequest().WithPost(UserInfoPath)
	if data != nil {
		reqDef = reqDef.WithJSONBody(data)
	}
	return a.requester.Request(ctx, reqDef, hiddenLoading("User info", opts)...)
}

// GetUserName loads the user name by query parameters, the loading indicator is hidden.
func (a *API) GetUserName(ctx context.Context, params url.Values, opts ...requester.Option) (requester.Result, error) {
	reqDef := request.NewHTTPRequest().WithGet(UserNamePath).WithQueryValues(params)
	return a.requester.Request(ctx, reqDef, hiddenLoading("User name", opts)...)
}

// GetReport loads the report list, params are merged with the fixed report query.
func (a *API) GetReport(ctx context.Context, params url.Values, opts ...requester.Option) (requester.Result, error) {
	query := reportQuery()
	for k, v := range params {
		query[k] = v
	}
	reqDef := request.NewHTTPRequest().WithGet(ReportPath).WithQueryValues(query)
	return a.requester.Request(ctx, reqDef, hiddenLoading("Report", opts)...)
}

// DecodeUserInfo decodes the data of the GetUserInfo result.
func DecodeUserInfo(result requester.Result) (*UserInfo, error) {
	if result.Payload == nil {
		return nil, fmt.Errorf("user info result has no payload")
	}
	envelope := struct {
		Data *UserInfo `json:"data"`
	}{}
	if err := json.Unmarshal(result.Payload.Raw, &envelope); err != nil {
		return nil, fmt.Errorf("cannot decode user info: %w", err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("user info result has no data")
	}
	return envelope.Data, nil
}

func hiddenLoading(action string, opts []requester.Option) []requester.Option {
	return append([]requester.Option{requester.WithAction(action), requester.WithShowLoading(false)}, opts...)
}
