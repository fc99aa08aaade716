//go:build !linux && !darwin

package notify

import (
	"errors"

	"github.com/user/klaxon/internal/protocol"
)

type Desktop struct{}

// NewDesktop creates the platform notifier.
func NewDesktop() *Desktop {
	return &Desktop{}
}

func (d *Desktop) Notify(title, message string, level protocol.Level) error {
	return errors.New("desktop notifications unsupported on this platform")
}
