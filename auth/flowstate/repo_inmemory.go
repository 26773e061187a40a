package flowstate

import (
	"errors"
	"sync"
	"time"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// Flows older than the timeout are treated as missing and pruned on write.
type InMemoryRepo struct {
	mu      sync.RWMutex
	states  map[string]*FlowState
	timeout time.Duration
	now     func() time.Time
}

// NewInMemoryRepo creates a repository whose flows expire after timeout (0 keeps them forever).
func NewInMemoryRepo(timeout time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]*FlowState),
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock replaces the repository clock.
func (r *InMemoryRepo) WithClock(now func() time.Time) *InMemoryRepo {
	r.now = now
	return r
}

// Upsert stores or updates a flow.
func (r *InMemoryRepo) Upsert(state string, flow *FlowState) error {
	if state == "" {
		return fgerrors.ErrMissingState
	}
	if flow == nil {
		return errors.New("[flowstate Upsert] flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	r.states[state] = clone(flow)
	return nil
}

// Get retrieves a flow by state parameter.
func (r *InMemoryRepo) Get(state string) (*FlowState, error) {
	if state == "" {
		return nil, fgerrors.ErrMissingState
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, err := r.lookupLocked(state)
	if err != nil {
		return nil, err
	}
	return clone(flow), nil
}

// Take retrieves and removes a flow.
func (r *InMemoryRepo) Take(state string) (*FlowState, error) {
	if state == "" {
		return nil, fgerrors.ErrMissingState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flow, err := r.lookupLocked(state)
	delete(r.states, state)
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// Delete removes a flow.
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return fgerrors.ErrMissingState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

// Len reports the number of stored flows, expired ones included.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

func (r *InMemoryRepo) lookupLocked(state string) (*FlowState, error) {
	flow, exists := r.states[state]
	if !exists {
		return nil, fgerrors.ErrStateMismatch
	}
	if r.expired(flow) {
		return nil, fgerrors.ErrFlowStateExpired
	}
	return flow, nil
}

func (r *InMemoryRepo) expired(flow *FlowState) bool {
	return r.timeout > 0 && r.now().Sub(flow.CreatedAt) >= r.timeout
}

func (r *InMemoryRepo) pruneLocked() {
	for k, flow := range r.states {
		if r.expired(flow) {
			delete(r.states, k)
		}
	}
}

// clone prevents callers from modifying stored flows.
func clone(f *FlowState) *FlowState {
	return &FlowState{
		CodeVerifier: f.CodeVerifier,
		RedirectURL:  f.RedirectURL,
		Permissions:  append([]string(nil), f.Permissions...),
		CreatedAt:    f.CreatedAt,
	}
}
