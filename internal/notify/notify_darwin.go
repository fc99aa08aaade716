//go:build darwin

package notify

import (
	"fmt"
	"strings"

	"github.com/user/klaxon/internal/protocol"
)

// Desktop sends macOS notifications via osascript. macOS has no urgency
// classes, so the level only decorates the title.
type Desktop struct{}

// NewDesktop creates the platform notifier.
func NewDesktop() *Desktop {
	return &Desktop{}
}

func (d *Desktop) Notify(title, message string, level protocol.Level) error {
	if level.Severity() >= protocol.LevelCritical.Severity() {
		title = fmt.Sprintf("[%s] %s", strings.ToUpper(string(level)), title)
	}
	script := fmt.Sprintf(`display notification "%s" with title "%s"`,
		escapeAppleScript(message), escapeAppleScript(title))
	return execCommand("osascript", "-e", script).Run()
}

// escapeAppleScript escapes characters that would break out of an
// AppleScript string literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
