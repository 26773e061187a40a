package dialog

import "net/url"

// Delegate receives the outcome of a dialog. Exactly one of the terminal
// callbacks (DidComplete, DidNotComplete, DidFailWithError) fires per dialog.
type Delegate interface {
	// DidComplete is called when the dialog succeeds and is about to be dismissed.
	DidComplete()
	// DidCompleteWithURL is called before DidComplete with the redirect URL.
	DidCompleteWithURL(u *url.URL)
	// DidNotCompleteWithURL is called before DidNotComplete when the dialog
	// was cancelled through the page itself.
	DidNotCompleteWithURL(u *url.URL)
	// DidNotComplete is called when the dialog is cancelled or dismissed.
	DidNotComplete()
	// DidFailWithError is called when the dialog failed to load or reported an error.
	DidFailWithError(err error)
}

// DelegateFuncs implements Delegate with optional callbacks.
type DelegateFuncs struct {
	OnComplete           func()
	OnCompleteWithURL    func(u *url.URL)
	OnNotCompleteWithURL func(u *url.URL)
	OnNotComplete        func()
	OnFailWithError      func(err error)
}

var _ Delegate = DelegateFuncs{}

func (d DelegateFuncs) DidComplete() {
	if d.OnComplete != nil {
		d.OnComplete()
	}
}

func (d DelegateFuncs) DidCompleteWithURL(u *url.URL) {
	if d.OnCompleteWithURL != nil {
		d.OnCompleteWithURL(u)
	}
}

func (d DelegateFuncs) DidNotCompleteWithURL(u *url.URL) {
	if d.OnNotCompleteWithURL != nil {
		d.OnNotCompleteWithURL(u)
	}
}

func (d DelegateFuncs) DidNotComplete() {
	if d.OnNotComplete != nil {
		d.OnNotComplete()
	}
}

func (d DelegateFuncs) DidFailWithError(err error) {
	if d.OnFailWithError != nil {
		d.OnFailWithError(err)
	}
}
