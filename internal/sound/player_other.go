//go:build !linux && !darwin

package sound

import "fmt"

func playFile(path string) error {
	return fmt.Errorf("sound playback unsupported on this platform (%s)", path)
}
