// Package api contains wrappers of the LS-KK backend endpoints.
//
// Each wrapper sends the request by the requester.Requester,
// so loading, notifications and duplicate cancellation work the same way for all endpoints.
package api

import (
	"net/url"

	"github.com/lskk/go-request/pkg/requester"
)

// Controller is the path prefix of all backend endpoints.
const Controller = "/LS-KK-backend"

const (
	LoginPath    = Controller + "/user/login.action"
	UserInfoPath = Controller + "/user/getUserInfo.action"
	UserNamePath = Controller + "/user/getUserName.action"
	ReportPath   = Controller + "/reportList/getReportList.action"
)

// reportQuery is sent with each GetReport request.
func reportQuery() url.Values {
	return url.Values{
		"param0":      []string{""},
		"param15":     []string{"2021"},
		"projectFlag": []string{"kk"},
	}
}

// API sends requests to the backend.
type API struct {
	requester *requester.Requester
}

func New(r *requester.Requester) *API {
	return &API{requester: r}
}

// Requester returns the underlying requester, for example to clear pending requests.
func (a *API) Requester() *requester.Requester {
	return a.requester
}
