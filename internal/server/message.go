// Package server defines the JSON wire format exchanged with chat clients.
package server

import (
	"encoding/json"
	"time"

	"github.com/relaychat/relaychat/internal/store"
)

// defaultSender is substituted when an inbound frame carries no sender field.
const defaultSender = "Unknown"

// inboundFrame is the client-to-server payload. Both fields are optional:
// a missing sender defaults to defaultSender and a missing message to the
// empty string. Pointers distinguish absent fields from empty ones.
type inboundFrame struct {
	Sender  *string `json:"sender"`
	Message *string `json:"message"`
}

// outboundFrame is the server-to-client payload. Timestamp is only set on
// history-replay frames; live broadcasts omit it.
type outboundFrame struct {
	Sender    string     `json:"sender"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// decodeInbound parses a raw frame, applying field defaults. It returns an
// error only when the payload is not a JSON object at all; such frames are
// skipped by the caller without closing the connection.
func decodeInbound(raw []byte) (sender, text string, err error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return "", "", err
	}

	sender = defaultSender
	if frame.Sender != nil {
		sender = *frame.Sender
	}
	if frame.Message != nil {
		text = *frame.Message
	}
	return sender, text, nil
}

// encodeLive serializes a stored message for the live broadcast path.
func encodeLive(msg store.Message) ([]byte, error) {
	return json.Marshal(outboundFrame{
		Sender:  msg.Sender,
		Message: msg.Text,
	})
}

// encodeHistory serializes a stored message for history replay, including
// the store-assigned timestamp.
func encodeHistory(msg store.Message) ([]byte, error) {
	ts := msg.Timestamp
	return json.Marshal(outboundFrame{
		Sender:    msg.Sender,
		Message:   msg.Text,
		Timestamp: &ts,
	})
}
