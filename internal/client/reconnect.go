package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/user/klaxon/internal/protocol"
)

// DelayPolicy decides how long to wait before the next connection attempt.
type DelayPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay waits the same duration after every attempt, forever. Alert
// delivery wants a predictable, prompt retry cadence, not backoff that
// leaves the host unreachable for minutes.
type FixedDelay time.Duration

func (d FixedDelay) NextDelay(int) time.Duration {
	return time.Duration(d)
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State       State      `json:"state"`
	Attempts    int        `json:"attempts"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Reconnector supervises sessions: run one until it dies, wait out the
// delay policy, start the next. The alert and confirmation queues are owned
// by the caller and outlive every individual session, so nothing queued is
// lost to a reconnect.
type Reconnector struct {
	url       string
	clientID  protocol.ClientID
	heartbeat time.Duration
	policy    DelayPolicy

	alerts   chan<- protocol.Alert
	confirms <-chan protocol.Confirmation

	mu       sync.Mutex
	session  *Session
	attempts int
	lastErr  error
}

// NewReconnector creates a supervisor that keeps one session alive against
// url using the given delay policy between attempts.
func NewReconnector(url string, clientID protocol.ClientID, heartbeat time.Duration, policy DelayPolicy, alerts chan<- protocol.Alert, confirms <-chan protocol.Confirmation) *Reconnector {
	return &Reconnector{
		url:       url,
		clientID:  clientID,
		heartbeat: heartbeat,
		policy:    policy,
		alerts:    alerts,
		confirms:  confirms,
	}
}

// Run supervises sessions until ctx is cancelled. Every attempt registers
// with the same client id.
func (r *Reconnector) Run(ctx context.Context) {
	for attempt := 1; ; attempt++ {
		sess := NewSession(r.url, r.clientID, r.heartbeat, r.alerts, r.confirms)

		r.mu.Lock()
		r.session = sess
		r.attempts = attempt
		r.mu.Unlock()

		err := sess.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		r.mu.Lock()
		r.lastErr = err
		r.mu.Unlock()
		if err != nil {
			slog.Error("session ended", "attempt", attempt, "error", err)
		} else {
			slog.Info("session closed", "attempt", attempt)
		}

		delay := r.policy.NextDelay(attempt)
		slog.Info("reconnecting", "delay", delay, "next_attempt", attempt+1)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// Status reports the supervisor's current view of the connection.
func (r *Reconnector) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{State: StateConnecting, Attempts: r.attempts}
	if r.session != nil {
		st.State = r.session.State()
		if t := r.session.ConnectedAt(); !t.IsZero() && (st.State == StateRegistered || st.State == StateActive) {
			st.ConnectedAt = &t
		}
	}
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	return st
}
