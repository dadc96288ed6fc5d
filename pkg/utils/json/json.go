// Package json wraps bytedance/sonic so the rest of the codebase keeps the
// familiar encoding/json call surface.
package json

import (
	"github.com/bytedance/sonic"
)

// Marshal serializes v into JSON bytes.
func Marshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// MarshalString serializes v into a JSON string.
func MarshalString(v interface{}) (string, error) {
	return sonic.MarshalString(v)
}

// MarshalIndent serializes v into indented JSON bytes.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return sonic.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses JSON bytes into v.
func Unmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

// UnmarshalString parses a JSON string into v.
func UnmarshalString(data string, v interface{}) error {
	return sonic.UnmarshalString(data, v)
}
