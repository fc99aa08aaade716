package reminder

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/klaxon/internal/protocol"
	"github.com/user/klaxon/internal/registry"
)

type fakeNotifier struct {
	mu       sync.Mutex
	titles   []string
	messages []string
	levels   []protocol.Level
	fired    chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fired: make(chan struct{}, 1)}
}

func (f *fakeNotifier) Notify(title, message string, level protocol.Level) error {
	f.mu.Lock()
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	f.levels = append(f.levels, level)
	f.mu.Unlock()
	select {
	case f.fired <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.titles)
}

func pendingAlert(id string, level protocol.Level) protocol.Alert {
	return protocol.Alert{
		ID:                   protocol.AlertID(id),
		Title:                "alert " + id,
		Message:              "details for " + id,
		Level:                level,
		RequiresConfirmation: true,
		Timestamp:            time.Now().UTC(),
	}
}

func TestFireSkipsWhenNothingPending(t *testing.T) {
	reg := registry.New("client-test", time.Minute)
	notifier := newFakeNotifier()
	r := New(reg, notifier, "")

	r.fire()

	if notifier.count() != 0 {
		t.Errorf("expected no notifications, got %d", notifier.count())
	}
}

func TestFireSummarizesPending(t *testing.T) {
	reg := registry.New("client-test", time.Minute)
	reg.Register(pendingAlert("a1", protocol.LevelInfo))
	reg.Register(pendingAlert("a2", protocol.LevelCritical))
	notifier := newFakeNotifier()
	r := New(reg, notifier, "")

	r.fire()

	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
	if !strings.Contains(notifier.titles[0], "2 alert") {
		t.Errorf("expected pending count in title, got %q", notifier.titles[0])
	}
	if !strings.Contains(notifier.messages[0], "a1") || !strings.Contains(notifier.messages[0], "a2") {
		t.Errorf("expected both ids in message, got %q", notifier.messages[0])
	}
	// Urgency follows the most severe pending alert.
	if notifier.levels[0] != protocol.LevelCritical {
		t.Errorf("expected critical level, got %v", notifier.levels[0])
	}
}

func TestStartInvalidSchedule(t *testing.T) {
	reg := registry.New("client-test", time.Minute)
	r := New(reg, newFakeNotifier(), "not a schedule")

	if err := r.Start(); err == nil {
		t.Fatal("expected error for invalid schedule, got nil")
	}
}

func TestStartEmptyScheduleIsNoop(t *testing.T) {
	reg := registry.New("client-test", time.Minute)
	r := New(reg, newFakeNotifier(), "")

	if err := r.Start(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	r.Stop()
}

func TestStartFiresOnSchedule(t *testing.T) {
	reg := registry.New("client-test", time.Minute)
	reg.Register(pendingAlert("a1", protocol.LevelWarning))
	notifier := newFakeNotifier()
	r := New(reg, notifier, "@every 10ms")

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	select {
	case <-notifier.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder never fired")
	}
}
