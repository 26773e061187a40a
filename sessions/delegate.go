package sessions

// Delegate receives session callbacks. Callbacks run on the goroutine that
// changed the session, never while the session lock is held.
type Delegate interface {
	// DidLogin is called when the user successfully logged in.
	DidLogin()
	// DidNotLogin is called when login ended without a token. cancelled is
	// true when the user dismissed the dialog or denied access.
	DidNotLogin(cancelled bool)
	// DidLogout is called when the user logged out.
	DidLogout()
	// SessionInvalidated is called when the server rejected the token: it
	// expired, the app was disabled, the user revoked the app's permissions
	// or changed their password.
	SessionInvalidated()
}

// DelegateFuncs implements Delegate with optional callbacks. Nil fields are skipped.
type DelegateFuncs struct {
	OnLogin       func()
	OnNotLogin    func(cancelled bool)
	OnLogout      func()
	OnInvalidated func()
}

var _ Delegate = DelegateFuncs{}

func (d DelegateFuncs) DidLogin() {
	if d.OnLogin != nil {
		d.OnLogin()
	}
}

func (d DelegateFuncs) DidNotLogin(cancelled bool) {
	if d.OnNotLogin != nil {
		d.OnNotLogin(cancelled)
	}
}

func (d DelegateFuncs) DidLogout() {
	if d.OnLogout != nil {
		d.OnLogout()
	}
}

func (d DelegateFuncs) SessionInvalidated() {
	if d.OnInvalidated != nil {
		d.OnInvalidated()
	}
}
