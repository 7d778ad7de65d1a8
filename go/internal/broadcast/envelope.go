package broadcast

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed means the bytes were not an envelope or the payload didn't fit its type.
	ErrMalformed = errors.New("broadcast: malformed message")
	// ErrUnknownType means a well-formed envelope carried a type this build doesn't know.
	ErrUnknownType = errors.New("broadcast: unknown message type")
	// ErrClosed is returned when publishing on a closed handle.
	ErrClosed = errors.New("broadcast: channel closed")
)

// Envelope is the wire shape of every message.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
}

// Encode wraps msg in an envelope from sender.
func Encode(sender string, seq uint64, msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{
		Type:    msg.Type(),
		Payload: payload,
		Sender:  sender,
		Seq:     seq,
	})
}

// Decode parses an envelope and its payload. The returned Envelope is populated
// whenever the outer JSON parsed, even if the payload did not.
func Decode(data []byte) (Envelope, Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return env, nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case TypeStateUpdate:
		msg, err = decodePayload[StateUpdate](env.Payload)
	case TypePlayerDrafted:
		msg, err = decodePayload[PlayerDrafted](env.Payload)
	case TypeUndoPick:
		msg, err = decodePayload[UndoPick](env.Payload)
	case TypeDraftReset:
		msg = DraftReset{}
	case TypeToggleView:
		msg, err = decodePayload[ToggleView](env.Payload)
	case TypeRequestState:
		msg = RequestState{}
	default:
		return env, nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err == nil {
		if v, ok := msg.(interface{ validate() error }); ok {
			err = v.validate()
		}
	}
	if err != nil {
		return env, nil, fmt.Errorf("%w: %s payload: %v", ErrMalformed, env.Type, err)
	}
	return env, msg, nil
}

func (m PlayerDrafted) validate() error {
	if m.Pick.Player.Name == "" {
		return errors.New("missing player name")
	}
	if m.PickIndex < 0 {
		return errors.New("negative pick index")
	}
	return nil
}

func (m UndoPick) validate() error {
	if m.Player.Name == "" {
		return errors.New("missing player name")
	}
	if m.PickIndex < 0 {
		return errors.New("negative pick index")
	}
	return nil
}

func decodePayload[T Message](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, errors.New("missing payload")
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}
