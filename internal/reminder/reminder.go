// internal/reminder/reminder.go
package reminder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/user/klaxon/internal/protocol"
	"github.com/user/klaxon/internal/registry"
)

// Notifier surfaces the reminder on the desktop.
type Notifier interface {
	Notify(title, message string, level protocol.Level) error
}

// Reminder re-surfaces unconfirmed alerts on a cron schedule so they are
// not forgotten between the initial notification and the auto-confirm
// timeout.
type Reminder struct {
	registry *registry.Registry
	notifier Notifier
	schedule string
	cron     *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Reminder over the given registry. An empty schedule
// disables it.
func New(reg *registry.Registry, notifier Notifier, schedule string) *Reminder {
	return &Reminder{
		registry: reg,
		notifier: notifier,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the cron entry and starts the ticker. With no schedule
// configured this is a no-op.
func (r *Reminder) Start() error {
	if r.schedule == "" {
		return nil
	}
	if _, err := r.cron.AddFunc(r.schedule, r.fire); err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", r.schedule, err)
	}
	slog.Info("reminder scheduled", "schedule", r.schedule)
	r.cron.Start()
	return nil
}

// Stop stops the cron ticker.
func (r *Reminder) Stop() {
	r.cron.Stop()
}

func (r *Reminder) fire() {
	pending := r.registry.Pending()
	if len(pending) == 0 {
		return
	}
	slog.Info("reminder firing", "pending", len(pending))

	level := protocol.LevelInfo
	lines := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Level.Severity() > level.Severity() {
			level = p.Level
		}
		lines = append(lines, fmt.Sprintf("%s: %s", p.ID, p.Title))
	}

	title := fmt.Sprintf("%d alert(s) awaiting confirmation", len(pending))
	if err := r.notifier.Notify(title, strings.Join(lines, "\n"), level); err != nil {
		slog.Warn("reminder notification failed", "error", err)
	}
}
