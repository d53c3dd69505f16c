// Package model contains the wire models passed between the field server
// and the display.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is one channel message in either direction. Type is the dispatch
// key; Data is left raw and interpreted only by the handler for that type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope marshals data into an envelope of the given type. A nil data
// value is sent as JSON null.
func NewEnvelope(msgType string, data any) (Envelope, error) {
	if msgType == "" {
		return Envelope{}, ErrMissingType
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %s: %w", ErrEncode, msgType, err)
	}
	return Envelope{Type: msgType, Data: raw}, nil
}

// Decode parses one inbound frame. A frame that is not a JSON object with a
// non-empty type is malformed.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, ErrMissingType)
	}
	return env, nil
}

// Encode renders the envelope as one text frame.
func (e Envelope) Encode() ([]byte, error) {
	if e.Type == "" {
		return nil, ErrMissingType
	}
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("null")
	}
	return json.Marshal(e)
}

// IsNull reports whether the payload is absent or JSON null.
func (e Envelope) IsNull() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null"))
}

// Unmarshal decodes the payload into v.
func (e Envelope) Unmarshal(v any) error {
	if e.IsNull() {
		return fmt.Errorf("%w: %s has no data", ErrDecode, e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, e.Type, err)
	}
	return nil
}

// Text returns the payload as a string. JSON strings are unquoted; numbers
// and other scalars are returned verbatim so "100" and 100 compare equal.
func (e Envelope) Text() string {
	if e.IsNull() {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(e.Data))
}
