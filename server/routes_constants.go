package server

// Route path constants for the loopback redirect receiver
const (
	// RouteCallback receives OAuth and dialog redirects
	RouteCallback = "/callback"

	// RouteCancel is the redirect target for a dismissed dialog
	RouteCancel = "/cancel"
)

// ParamRelay marks a callback replayed by the relay page with an empty fragment.
const ParamRelay = "fg_relay"
