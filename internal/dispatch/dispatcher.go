// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/user/klaxon/internal/protocol"
	"github.com/user/klaxon/internal/registry"
)

// SoundPlayer starts audio playback without blocking the caller.
type SoundPlayer interface {
	PlayAsync(name string)
}

// Notifier displays a desktop notification.
type Notifier interface {
	Notify(title, message string, level protocol.Level) error
}

// HistoryWriter records received alerts.
type HistoryWriter interface {
	Append(alert protocol.Alert) error
}

// Presenter mirrors alerts to an additional channel, such as a chat bot.
type Presenter interface {
	Name() string
	Present(ctx context.Context, alert protocol.Alert) error
}

// Dispatcher renders incoming alerts and feeds the confirmation registry.
// Every presentation step is log-and-continue: a broken sound card or
// notification daemon never stops alerts from being tracked.
type Dispatcher struct {
	sounds   SoundPlayer
	notifier Notifier
	registry *registry.Registry
	history  HistoryWriter
	out      chan<- protocol.Confirmation

	mu         sync.RWMutex
	presenters []Presenter
}

// New creates a Dispatcher. history may be nil to disable the alert log;
// out receives confirmations produced by Confirm.
func New(sounds SoundPlayer, notifier Notifier, reg *registry.Registry, history HistoryWriter, out chan<- protocol.Confirmation) *Dispatcher {
	return &Dispatcher{
		sounds:   sounds,
		notifier: notifier,
		registry: reg,
		history:  history,
		out:      out,
	}
}

// AddPresenter registers an extra presentation channel.
func (d *Dispatcher) AddPresenter(p Presenter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presenters = append(d.presenters, p)
}

// Run consumes the inbound alert queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, alerts <-chan protocol.Alert) {
	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			d.Dispatch(ctx, alert)
		}
	}
}

// Dispatch renders one alert: sound in the background, notification
// synchronously, then confirmation tracking and the extra presenters.
func (d *Dispatcher) Dispatch(ctx context.Context, alert protocol.Alert) {
	slog.Info("dispatching alert",
		"alert_id", alert.ID,
		"level", alert.Level,
		"title", alert.Title,
		"requires_confirmation", alert.RequiresConfirmation)

	d.sounds.PlayAsync(alert.SoundName())

	if err := d.notifier.Notify(alert.Title, alert.Message, alert.Level); err != nil {
		slog.Error("notification display failed", "alert_id", alert.ID, "error", err)
	}

	if alert.RequiresConfirmation {
		d.registry.Register(alert)
		slog.Info("alert awaiting confirmation", "alert_id", alert.ID, "pending", d.registry.Count())
	}

	if d.history != nil {
		if err := d.history.Append(alert); err != nil {
			slog.Error("history append failed", "alert_id", alert.ID, "error", err)
		}
	}

	d.mu.RLock()
	presenters := d.presenters
	d.mu.RUnlock()
	for _, p := range presenters {
		if err := p.Present(ctx, alert); err != nil {
			slog.Error("presenter failed", "presenter", p.Name(), "alert_id", alert.ID, "error", err)
		}
	}
}

// Confirm acknowledges a pending alert and queues the confirmation for the
// server. Returns registry.ErrNotPending for unknown or already-confirmed
// ids.
func (d *Dispatcher) Confirm(ctx context.Context, id protocol.AlertID) error {
	c, err := d.registry.Confirm(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotPending) {
			slog.Warn("confirm requested for unknown alert", "alert_id", id)
		}
		return err
	}

	select {
	case d.out <- c:
	case <-ctx.Done():
		return ctx.Err()
	}
	slog.Info("alert confirmed", "alert_id", id, "username", c.Username)
	return nil
}
