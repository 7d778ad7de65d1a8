package service

import "encoding/json"

// jsonCodec lets Connect carry the plain Go request and response structs in this
// package. Clients send application/json (or application/connect+json for streams).
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
