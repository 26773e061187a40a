package dialog

import (
	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
	"github.com/pkg/browser"
)

// Browser shows a URL to the user. The redirect back is received by the
// loopback server, so implementations only need to open the page.
type Browser interface {
	OpenURL(url string) error
}

// SystemBrowser opens URLs in the user's default browser.
type SystemBrowser struct{}

func (SystemBrowser) OpenURL(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fgerrors.Wrapf(fgerrors.ErrBrowser, "%v", err)
	}
	return nil
}

// BrowserFunc adapts a function to Browser.
type BrowserFunc func(url string) error

func (f BrowserFunc) OpenURL(url string) error {
	return f(url)
}
