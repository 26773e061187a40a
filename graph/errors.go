package graph

import (
	"bytes"
	"fmt"
	"net/http"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/tidwall/gjson"
)

// Error codes the server uses for a rejected access token.
const (
	CodeInvalidToken     = 190
	CodeRESTInvalidToken = 102
	TypeOAuthException   = "OAuthException"
)

// GraphError is an error returned by the Graph API, either in the response body or as an HTTP status.
type GraphError struct {
	Type       string
	Message    string
	Code       int64
	Subcode    int64
	StatusCode int
	// REST is set for the legacy error_code/error_msg shape.
	REST bool
	// Body is the raw response, kept when it carried no structured error.
	Body string
}

func (e *GraphError) Error() string {
	switch {
	case e.Type != "" && e.Code != 0:
		return fmt.Sprintf("%s (%d): %s", e.Type, e.Code, e.Message)
	case e.Type != "":
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("graph error %d: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("graph request failed with status %d: %s", e.StatusCode, e.Message)
	}
}

// InvalidatesSession reports whether the server rejected the access token,
// meaning the session that issued the request is no longer usable.
func (e *GraphError) InvalidatesSession() bool {
	return e.Type == TypeOAuthException ||
		e.Code == CodeInvalidToken ||
		(e.REST && e.Code == CodeRESTInvalidToken) ||
		e.StatusCode == http.StatusUnauthorized
}

// parseError extracts an error from a response. It returns nil for a successful response.
func parseError(status int, body []byte) error {
	trimmed := string(bytes.TrimSpace(body))
	if trimmed == "false" {
		return fgerrors.ErrOperationFailed
	}

	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if parsed.IsObject() {
			if e := parsed.Get("error"); e.IsObject() {
				return &GraphError{
					Type:       e.Get("type").String(),
					Message:    e.Get("message").String(),
					Code:       e.Get("code").Int(),
					Subcode:    e.Get("error_subcode").Int(),
					StatusCode: status,
				}
			} else if e.Type == gjson.String {
				// OAuth style: {"error": "invalid_token", "error_description": "..."}
				return &GraphError{
					Type:       e.String(),
					Message:    parsed.Get("error_description").String(),
					StatusCode: status,
				}
			}
			if code := parsed.Get("error_code"); code.Exists() {
				return &GraphError{
					Message:    parsed.Get("error_msg").String(),
					Code:       code.Int(),
					StatusCode: status,
					REST:       true,
				}
			}
		}
	}

	if status >= http.StatusBadRequest {
		msg := http.StatusText(status)
		return &GraphError{Message: msg, StatusCode: status, Body: trimmed}
	}
	return nil
}
