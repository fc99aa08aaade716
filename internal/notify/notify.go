// Package notify shows desktop notifications through the platform's native
// notifier binary. All rendering is delegated to the OS; klaxon only builds
// the command line.
package notify

import (
	"os/exec"

	"github.com/user/klaxon/internal/protocol"
)

var execCommand = exec.Command

// Notifier displays one notification. Implementations block until the
// platform command finishes; callers decide whether errors are fatal.
type Notifier interface {
	Notify(title, message string, level protocol.Level) error
}

// urgency maps alert levels onto desktop urgency classes.
func urgency(level protocol.Level) string {
	switch level {
	case protocol.LevelEmergency, protocol.LevelCritical:
		return "critical"
	case protocol.LevelWarning:
		return "normal"
	default:
		return "low"
	}
}
