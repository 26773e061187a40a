package dialog

import (
	"fmt"

	"github.com/jrsteele09/go-familygraph/oauth2"
)

// DialogError is an error reported by the dialog page through its redirect.
type DialogError struct {
	Code    string
	Message string
}

func NewDialogError(p oauth2.RedirectParams) *DialogError {
	code := p.ErrorCode
	if code == "" {
		code = p.Error
	}
	msg := p.ErrorMessage
	if msg == "" {
		msg = p.ErrorDescription
	}
	return &DialogError{Code: code, Message: msg}
}

func (e *DialogError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dialog error %s", e.Code)
	}
	return fmt.Sprintf("dialog error %s: %s", e.Code, e.Message)
}
