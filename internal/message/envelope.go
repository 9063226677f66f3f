package message

import (
	"encoding/json"
	"fmt"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
)

// Envelope is a Pub/Sub message as delivered to the handler. Data holds the
// base64-decoded payload; encoding/json decodes the base64 text on the wire.
type Envelope struct {
	Data        []byte            `json:"data,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// ParseEnvelope parses a raw {"data":"<base64>"} envelope.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, apperr.MalformedMessageErr.WrapParent(fmt.Errorf("unmarshal envelope: %w", err))
	}
	return env, nil
}

// Decode parses the envelope payload into a Message. A nil message and nil
// error are returned when the envelope carries no data.
func Decode(env Envelope) (*Message, error) {
	if len(env.Data) == 0 {
		return nil, nil
	}

	var msg Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return nil, apperr.MalformedMessageErr.WrapParent(fmt.Errorf("unmarshal message: %w", err))
	}

	return &msg, nil
}

// DecodeEnvelope parses a raw envelope and decodes its payload.
func DecodeEnvelope(raw []byte) (*Message, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return Decode(env)
}
