// internal/protocol/envelope.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType tags a wire frame. Unknown tags decode without error so new
// server-side frame types never kill a session.
type MessageType string

const (
	TypeRegister     MessageType = "register"
	TypeAlert        MessageType = "alert"
	TypeConfirmation MessageType = "confirmation"
	TypeHeartbeat    MessageType = "heartbeat"
)

// ErrMalformed marks frames the codec could not decode. Sessions drop the
// frame and keep reading.
var ErrMalformed = errors.New("malformed frame")

// Envelope is one decoded wire frame. Exactly the payload fields for its
// Type are set: register carries ClientID/Hostname inline, alert and
// confirmation carry their nested payload, heartbeat carries nothing.
type Envelope struct {
	Type         MessageType
	ClientID     ClientID
	Hostname     string
	Alert        *Alert
	Confirmation *Confirmation
}

func RegisterEnvelope(clientID ClientID, hostname string) Envelope {
	return Envelope{Type: TypeRegister, ClientID: clientID, Hostname: hostname}
}

func AlertEnvelope(a Alert) Envelope {
	return Envelope{Type: TypeAlert, Alert: &a}
}

func ConfirmationEnvelope(c Confirmation) Envelope {
	return Envelope{Type: TypeConfirmation, Confirmation: &c}
}

func HeartbeatEnvelope() Envelope {
	return Envelope{Type: TypeHeartbeat}
}

// Encode serializes an envelope into its wire JSON. Each type writes only
// its own payload shape.
func Encode(e Envelope) ([]byte, error) {
	switch e.Type {
	case TypeRegister:
		if e.ClientID == "" {
			return nil, fmt.Errorf("encode register: empty client_id")
		}
		return json.Marshal(struct {
			Type     MessageType `json:"type"`
			ClientID ClientID    `json:"client_id"`
			Hostname string      `json:"hostname"`
		}{e.Type, e.ClientID, e.Hostname})
	case TypeAlert:
		if e.Alert == nil {
			return nil, fmt.Errorf("encode alert: missing payload")
		}
		return json.Marshal(struct {
			Type  MessageType `json:"type"`
			Alert *Alert      `json:"alert"`
		}{e.Type, e.Alert})
	case TypeConfirmation:
		if e.Confirmation == nil {
			return nil, fmt.Errorf("encode confirmation: missing payload")
		}
		return json.Marshal(struct {
			Type         MessageType   `json:"type"`
			Confirmation *Confirmation `json:"confirmation"`
		}{e.Type, e.Confirmation})
	case TypeHeartbeat:
		return json.Marshal(struct {
			Type MessageType `json:"type"`
		}{e.Type})
	default:
		return nil, fmt.Errorf("encode: unknown message type %q", e.Type)
	}
}

type wireEnvelope struct {
	Type         string        `json:"type"`
	ClientID     ClientID      `json:"client_id"`
	Hostname     string        `json:"hostname"`
	Alert        *Alert        `json:"alert"`
	Confirmation *Confirmation `json:"confirmation"`
}

// Decode parses one wire frame. Frames with an unrecognized type tag are
// returned as-is with no payload and a nil error; structurally broken frames
// return an error wrapping ErrMalformed.
func Decode(data []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type tag", ErrMalformed)
	}

	e := Envelope{Type: MessageType(w.Type)}
	switch e.Type {
	case TypeRegister:
		if w.ClientID == "" {
			return Envelope{}, fmt.Errorf("%w: register without client_id", ErrMalformed)
		}
		e.ClientID = w.ClientID
		e.Hostname = w.Hostname
	case TypeAlert:
		if w.Alert == nil {
			return Envelope{}, fmt.Errorf("%w: alert without payload", ErrMalformed)
		}
		if w.Alert.ID == "" {
			return Envelope{}, fmt.Errorf("%w: alert without id", ErrMalformed)
		}
		e.Alert = w.Alert
	case TypeConfirmation:
		if w.Confirmation == nil {
			return Envelope{}, fmt.Errorf("%w: confirmation without payload", ErrMalformed)
		}
		if w.Confirmation.AlertID == "" {
			return Envelope{}, fmt.Errorf("%w: confirmation without alert_id", ErrMalformed)
		}
		e.Confirmation = w.Confirmation
	case TypeHeartbeat:
		// no payload
	default:
		// Unknown tag: caller logs and drops it.
	}
	return e, nil
}
