// Package flowstate keeps the pending authorization flows between opening the
// authorize page and receiving the redirect.
package flowstate

import "time"

// FlowState is what must survive the round trip through the browser,
// keyed by the state parameter.
type FlowState struct {
	CodeVerifier string
	RedirectURL  string
	Permissions  []string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, flow *FlowState) error
	Get(state string) (*FlowState, error)
	// Take returns the flow and removes it, so a state can be redeemed once.
	Take(state string) (*FlowState, error)
	Delete(state string) error
}
