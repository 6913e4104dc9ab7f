package wire

import "encoding/json"

// Envelope is the application-message frame exchanged after the
// handshake completes. Routing uses only Target; Content is an opaque,
// already-serialized payload understood by the emitter/handler pair at
// the application layer.
type Envelope struct {
	Target  string `json:"target"`
	Content string `json:"content"`
}

// Encode marshals the envelope to a text frame.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a text frame into an Envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// ReplyEnvelope is the superset frame used by the request/reply client
// variant: it carries everything a plain Envelope does plus a
// monotonically increasing correlation id and a source tag. The broker
// treats ID as opaque passthrough and never consults it for routing.
type ReplyEnvelope struct {
	ID      uint64 `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Content string `json:"content"`
}

// Encode marshals the reply envelope to a text frame.
func (e ReplyEnvelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeReplyEnvelope parses a text frame into a ReplyEnvelope.
func DecodeReplyEnvelope(data []byte) (ReplyEnvelope, error) {
	var e ReplyEnvelope
	err := json.Unmarshal(data, &e)
	return e, err
}

// PeekTarget extracts only the routing field from an application frame,
// leaving the rest of the payload untouched. The broker uses this rather
// than decoding into Envelope so that extra fields a richer frame carries
// (the request/reply variant's id and source) pass through unmodified
// instead of being silently dropped by a round-trip through Envelope.
func PeekTarget(data []byte) (string, error) {
	var t struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return "", err
	}
	return t.Target, nil
}
