//go:build darwin

package sound

func playFile(path string) error {
	return execCommand("afplay", path).Run()
}
