//go:build linux

package notify

import (
	"github.com/user/klaxon/internal/protocol"
)

// Desktop sends Linux desktop notifications via notify-send.
type Desktop struct {
	appName string
}

// NewDesktop creates the platform notifier.
func NewDesktop() *Desktop {
	return &Desktop{appName: "klaxon"}
}

func (d *Desktop) Notify(title, message string, level protocol.Level) error {
	cmd := execCommand("notify-send",
		"--urgency", urgency(level),
		"--app-name", d.appName,
		title, message)
	return cmd.Run()
}
