package sessions

import "time"

// Record is the persisted form of a session.
type Record struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// ValidAt applies the session validity rule to a stored record.
func (r Record) ValidAt(now time.Time) bool {
	if r.AccessToken == "" {
		return false
	}
	return r.ExpiresAt.IsZero() || now.Before(r.ExpiresAt)
}

// Repo defines the interface for session persistence, keyed by client ID.
type Repo interface {
	// Load returns errors.ErrNotFound when nothing is stored for clientID
	Load(clientID string) (Record, error)

	// Save creates or replaces the record for clientID
	Save(clientID string, rec Record) error

	// Delete removes the record, returning errors.ErrNotFound when absent
	Delete(clientID string) error
}
