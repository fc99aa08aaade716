// internal/protocol/ids.go
package protocol

import (
	"github.com/google/uuid"
)

// AlertID identifies an alert. Servers usually send UUIDs but any opaque
// non-empty string is accepted.
type AlertID string

// ClientID identifies one agent instance to the server.
type ClientID string

func NewAlertID() AlertID {
	return AlertID(uuid.New().String())
}

func NewClientID() ClientID {
	return ClientID(uuid.New().String())
}
