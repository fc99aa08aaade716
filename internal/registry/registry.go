// internal/registry/registry.go
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/user/klaxon/internal/identity"
	"github.com/user/klaxon/internal/protocol"
)

// ErrNotPending is returned when confirming an alert that is not (or is no
// longer) awaiting confirmation.
var ErrNotPending = errors.New("alert not pending")

type pendingEntry struct {
	alert        protocol.Alert
	registeredAt time.Time
}

// PendingAlert is a read-only snapshot of one awaiting confirmation.
type PendingAlert struct {
	ID           protocol.AlertID `json:"id"`
	Title        string           `json:"title"`
	Level        protocol.Level   `json:"level"`
	RegisteredAt time.Time        `json:"registered_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// Registry tracks alerts awaiting confirmation. All operations take the one
// mutex, so a confirm racing a sweep for the same alert resolves to exactly
// one confirmation: whichever removes the entry first wins, the loser sees
// it gone.
type Registry struct {
	mu       sync.Mutex
	pending  map[protocol.AlertID]pendingEntry
	clientID protocol.ClientID
	timeout  time.Duration

	clock func() time.Time
}

// New creates a Registry for the given client identity. timeout is how long
// an alert may stay pending before a sweep auto-confirms it.
func New(clientID protocol.ClientID, timeout time.Duration) *Registry {
	return &Registry{
		pending:  make(map[protocol.AlertID]pendingEntry),
		clientID: clientID,
		timeout:  timeout,
		clock:    time.Now,
	}
}

// Register adds an alert to the pending set. Re-registering an id restarts
// its confirmation window.
func (r *Registry) Register(alert protocol.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[alert.ID] = pendingEntry{alert: alert, registeredAt: r.clock()}
}

// Confirm removes the alert and returns the confirmation to send upstream.
func (r *Registry) Confirm(id protocol.AlertID) (protocol.Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[id]; !ok {
		return protocol.Confirmation{}, ErrNotPending
	}
	delete(r.pending, id)
	return r.confirmation(id), nil
}

// SweepExpired removes every entry whose confirmation window elapsed before
// now and returns a synthesized confirmation for each. Auto-confirmations
// carry the same local identity a manual confirm would.
func (r *Registry) SweepExpired(now time.Time) []protocol.Confirmation {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []protocol.Confirmation
	for id, entry := range r.pending {
		if !entry.registeredAt.Add(r.timeout).After(now) {
			delete(r.pending, id)
			expired = append(expired, r.confirmation(id))
		}
	}
	return expired
}

// confirmation builds a Confirmation stamped with the local identity.
// Caller must hold the mutex.
func (r *Registry) confirmation(id protocol.AlertID) protocol.Confirmation {
	return protocol.Confirmation{
		AlertID:     id,
		ClientID:    r.clientID,
		ConfirmedAt: r.clock(),
		Hostname:    identity.Hostname(),
		Username:    identity.Username(),
	}
}

// Count returns how many alerts are awaiting confirmation.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// IDs returns the pending alert ids, sorted for stable output.
func (r *Registry) IDs() []protocol.AlertID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]protocol.AlertID, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Pending returns a snapshot of everything awaiting confirmation, oldest
// first.
func (r *Registry) Pending() []PendingAlert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PendingAlert, 0, len(r.pending))
	for id, entry := range r.pending {
		out = append(out, PendingAlert{
			ID:           id,
			Title:        entry.alert.Title,
			Level:        entry.alert.Level,
			RegisteredAt: entry.registeredAt,
			ExpiresAt:    entry.registeredAt.Add(r.timeout),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out
}
