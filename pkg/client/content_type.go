package client

import (
	"mime"
	"regexp"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
)

var jsonContentTypeRegexp = regexp.MustCompile(ContentTypeApplicationJSONRegexp)

// isJSONContentType ignores media type parameters, e.g. "; charset=utf-8".
func isJSONContentType(contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return jsonContentTypeRegexp.MatchString(contentType)
}
