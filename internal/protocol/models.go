package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is the severity of an alert. Wire values are lowercase.
type Level string

const (
	LevelInfo      Level = "info"
	LevelWarning   Level = "warning"
	LevelCritical  Level = "critical"
	LevelEmergency Level = "emergency"
)

// ParseLevel validates a wire-format level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelInfo, LevelWarning, LevelCritical, LevelEmergency:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown alert level %q", s)
}

// Severity ranks levels for presentation policy. Higher is more urgent.
func (l Level) Severity() int {
	switch l {
	case LevelEmergency:
		return 3
	case LevelCritical:
		return 2
	case LevelWarning:
		return 1
	default:
		return 0
	}
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Alert is a notification pushed by the server. SoundFile overrides the
// per-level default when set.
type Alert struct {
	ID                   AlertID   `json:"id"`
	Title                string    `json:"title"`
	Message              string    `json:"message"`
	Level                Level     `json:"level"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	SoundFile            *string   `json:"sound_file,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}

// SoundName returns the sound file to play for this alert: the explicit
// override if present, otherwise the default for the alert's level.
func (a *Alert) SoundName() string {
	if a.SoundFile != nil && *a.SoundFile != "" {
		return *a.SoundFile
	}
	switch a.Level {
	case LevelEmergency, LevelCritical:
		return "alarm_critical.wav"
	case LevelWarning:
		return "alarm_warning.wav"
	default:
		return "notification.wav"
	}
}

// Confirmation is the agent's acknowledgement of an alert, sent back to the
// server either on explicit user action or after the confirmation window
// expires.
type Confirmation struct {
	AlertID     AlertID   `json:"alert_id"`
	ClientID    ClientID  `json:"client_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	Hostname    string    `json:"hostname"`
	Username    string    `json:"username"`
}
