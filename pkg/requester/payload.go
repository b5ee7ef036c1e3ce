package requester

import (
	"bytes"
	stdjson "encoding/json"
	"net/http"

	"github.com/spf13/cast"
)

// Payload is the response envelope of the backend.
type Payload struct {
	Success      bool   `json:"success"`
	ErrorCode    any    `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Data         any    `json:"data,omitempty"`
	// StatusCode of the HTTP response.
	StatusCode int `json:"-"`
	// Header of the HTTP response.
	Header http.Header `json:"-"`
	// Raw body of the HTTP response.
	Raw []byte `json:"-"`
}

// decodePayload decodes the envelope, an invalid or an empty body results in an empty envelope.
func decodePayload(res *http.Response, raw []byte) (*Payload, error) {
	p := &Payload{Raw: raw}
	if res != nil {
		p.StatusCode = res.StatusCode
		p.Header = res.Header
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return &Payload{StatusCode: p.StatusCode, Header: p.Header, Raw: raw}, err
	}
	return p, nil
}

// Code returns the business error code, it is decoded from a number or a numeric string.
func (p *Payload) Code() int {
	return cast.ToInt(p.ErrorCode)
}

// DataString returns a string field of the data object.
func (p *Payload) DataString(key string) string {
	if m, ok := p.Data.(map[string]any); ok {
		return cast.ToString(m[key])
	}
	return ""
}

// JSON returns the payload as 2-space indented JSON.
// The raw body is used if it is a valid JSON, so the key order and unknown fields are kept.
func (p *Payload) JSON() string {
	if len(p.Raw) > 0 {
		var out bytes.Buffer
		if err := stdjson.Indent(&out, bytes.TrimSpace(p.Raw), "", "  "); err == nil {
			return out.String()
		}
	}
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
