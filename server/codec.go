package server

import (
	"encoding/json"
	"fmt"
)

// jsonCodec carries plain Go structs as JSON. It registers under the
// "json" name, so Connect clients talking application/json reach it.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}
