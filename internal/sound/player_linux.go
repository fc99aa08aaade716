//go:build linux

package sound

import "fmt"

// playFile tries the PulseAudio player first, then falls back to ALSA.
func playFile(path string) error {
	if err := execCommand("paplay", path).Run(); err == nil {
		return nil
	}
	if err := execCommand("aplay", "-q", path).Run(); err == nil {
		return nil
	}
	return fmt.Errorf("no audio player available for %s", path)
}
