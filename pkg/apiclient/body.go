package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Body is a parsed response body. Non-JSON payloads are held as {"raw": text}.
type Body struct {
	data  []byte
	value any
}

// ParseBody builds a Body from a raw response payload.
func ParseBody(raw []byte) Body {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Body{}
	}
	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		wrapped := map[string]any{"raw": string(raw)}
		data, _ := json.Marshal(wrapped)
		return Body{data: data, value: wrapped}
	}
	return Body{data: trimmed, value: value}
}

// IsNull reports whether the response had no body or a JSON null.
func (b Body) IsNull() bool {
	return b.value == nil
}

// Value returns the generic decoded body (map, slice, scalar or nil).
func (b Body) Value() any {
	return b.value
}

// Bytes returns the JSON form of the body.
func (b Body) Bytes() []byte {
	return b.data
}

// Decode unmarshals the body into dst. A null body leaves dst untouched.
func (b Body) Decode(dst any) error {
	if b.IsNull() {
		return nil
	}
	if err := json.Unmarshal(b.data, dst); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Decode is the generic form of Body.Decode.
func Decode[T any](b Body) (T, error) {
	var out T
	err := b.Decode(&out)
	return out, err
}
