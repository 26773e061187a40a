package sessions

import (
	"fmt"
	"sync"

	fgerrors "github.com/jrsteele09/go-familygraph/internal/errors"
)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record // clientID -> Record
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records: make(map[string]Record),
	}
}

// Load retrieves a record by client ID
func (r *InMemoryRepo) Load(clientID string) (Record, error) {
	if clientID == "" {
		return Record{}, fmt.Errorf("clientID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[clientID]
	if !ok {
		return Record{}, fmt.Errorf("session %s: %w", clientID, fgerrors.ErrNotFound)
	}
	return copyRecord(rec), nil
}

// Save creates or replaces a record
func (r *InMemoryRepo) Save(clientID string, rec Record) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	r.records[clientID] = copyRecord(rec)
	return nil
}

// Delete removes a record
func (r *InMemoryRepo) Delete(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("clientID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[clientID]; !ok {
		return fmt.Errorf("session %s: %w", clientID, fgerrors.ErrNotFound)
	}
	delete(r.records, clientID)
	return nil
}

func copyRecord(rec Record) Record {
	rec.Permissions = append([]string(nil), rec.Permissions...)
	return rec
}
