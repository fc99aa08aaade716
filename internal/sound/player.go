// internal/sound/player.go
package sound

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sync/semaphore"
)

var (
	execCommand           = exec.Command
	bellOut     io.Writer = os.Stdout
)

// Player plays alert sounds from a directory of audio files. Playback runs
// in background goroutines; the semaphore caps how many player processes
// can run at once so an alert storm cannot spawn unbounded children.
type Player struct {
	dir string
	sem *semaphore.Weighted
}

// NewPlayer creates a Player reading files from dir, allowing up to
// maxConcurrent simultaneous playbacks.
func NewPlayer(dir string, maxConcurrent int64) *Player {
	return &Player{dir: dir, sem: semaphore.NewWeighted(maxConcurrent)}
}

// PlayAsync plays the named file in the background. Failures are logged and
// swallowed: presentation must never stall or kill the session.
func (p *Player) PlayAsync(name string) {
	go func() {
		if err := p.play(name); err != nil {
			slog.Error("sound playback failed", "file", name, "error", err)
		}
	}()
}

func (p *Player) play(name string) error {
	path := filepath.Join(p.dir, name)
	if _, err := os.Stat(path); err != nil {
		slog.Warn("sound file missing, using terminal bell", "path", path)
		return bell()
	}

	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	if err := playFile(path); err != nil {
		slog.Warn("audio player failed, using terminal bell", "path", path, "error", err)
		return bell()
	}
	return nil
}

// bell emits the ASCII bell as a last-resort audible signal.
func bell() error {
	_, err := bellOut.Write([]byte("\a"))
	return err
}
