// internal/client/session.go
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/klaxon/internal/identity"
	"github.com/user/klaxon/internal/protocol"
)

// State is the lifecycle phase of one connection attempt.
type State string

const (
	StateConnecting State = "connecting"
	StateRegistered State = "registered"
	StateActive     State = "active"
	StateClosed     State = "closed"
	StateFailed     State = "failed"
)

const writeWait = 10 * time.Second

// Session is a single websocket connection to the alert server: dial, send
// the register frame, then multiplex inbound frames, outbound confirmations
// and the heartbeat ticker until the connection ends. Sessions never
// reconnect; that is the Reconnector's job.
type Session struct {
	url       string
	clientID  protocol.ClientID
	heartbeat time.Duration

	alerts   chan<- protocol.Alert
	confirms <-chan protocol.Confirmation

	dialer *websocket.Dialer

	mu          sync.Mutex
	state       State
	connectedAt time.Time
}

// NewSession creates a Session. alerts receives decoded inbound alerts;
// confirms supplies confirmations to send upstream.
func NewSession(url string, clientID protocol.ClientID, heartbeat time.Duration, alerts chan<- protocol.Alert, confirms <-chan protocol.Confirmation) *Session {
	return &Session{
		url:       url,
		clientID:  clientID,
		heartbeat: heartbeat,
		alerts:    alerts,
		confirms:  confirms,
		dialer:    websocket.DefaultDialer,
		state:     StateConnecting,
	}
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnectedAt returns when the websocket was established, or the zero time
// if the dial never succeeded.
func (s *Session) ConnectedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedAt
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) markConnected() {
	s.mu.Lock()
	s.connectedAt = time.Now()
	s.mu.Unlock()
}

// Run drives the session to completion. A server-initiated close returns
// nil; dial, read or write failures return the error. Malformed or
// unexpected frames are logged and dropped, never fatal.
func (s *Session) Run(ctx context.Context) error {
	s.setState(StateConnecting)

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	s.markConnected()
	slog.Info("connected", "url", s.url)

	if err := s.write(conn, protocol.RegisterEnvelope(s.clientID, identity.Hostname())); err != nil {
		s.setState(StateFailed)
		return fmt.Errorf("send register: %w", err)
	}
	s.setState(StateRegistered)
	slog.Info("registered", "client_id", s.clientID)

	done := make(chan struct{})
	defer close(done)
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go readPump(conn, frames, readErr, done)

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	s.setState(StateActive)
	for {
		select {
		case <-ctx.Done():
			// Best-effort goodbye; the server treats a vanished client
			// the same way.
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.setState(StateClosed)
			return nil

		case data := <-frames:
			s.handleFrame(ctx, data)

		case err := <-readErr:
			if isNormalClose(err) {
				s.setState(StateClosed)
				slog.Info("server closed connection")
				return nil
			}
			s.setState(StateFailed)
			return fmt.Errorf("read: %w", err)

		case c := <-s.confirms:
			if err := s.write(conn, protocol.ConfirmationEnvelope(c)); err != nil {
				s.setState(StateFailed)
				return fmt.Errorf("send confirmation: %w", err)
			}
			slog.Info("confirmation sent", "alert_id", c.AlertID)

		case <-ticker.C:
			if err := s.write(conn, protocol.HeartbeatEnvelope()); err != nil {
				s.setState(StateFailed)
				return fmt.Errorf("send heartbeat: %w", err)
			}
			slog.Debug("heartbeat sent")
		}
	}
}

// readPump feeds raw frames to the session loop. It exits when the read
// side errors or the session loop is gone.
func readPump(conn *websocket.Conn, frames chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- data:
		case <-done:
			return
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		slog.Warn("dropping malformed frame", "error", err)
		return
	}

	switch env.Type {
	case protocol.TypeAlert:
		alert := *env.Alert
		slog.Info("alert received", "alert_id", alert.ID, "level", alert.Level, "title", alert.Title)
		select {
		case s.alerts <- alert:
		case <-ctx.Done():
		}
	case protocol.TypeHeartbeat:
		slog.Debug("heartbeat from server")
	case protocol.TypeRegister, protocol.TypeConfirmation:
		slog.Warn("unexpected frame type from server", "type", env.Type)
	default:
		slog.Warn("ignoring unknown frame type", "type", env.Type)
	}
}

func (s *Session) write(conn *websocket.Conn, env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// isNormalClose reports whether the read error is an orderly shutdown
// rather than a transport failure.
func isNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, io.EOF)
}
