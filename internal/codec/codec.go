// Package codec converts between nested API values and their stored
// representation: a JSON array serialized into a single text column.
package codec

import (
	"encoding/json"
	"fmt"
)

// EncodeSeq serializes a sequence for storage in a text column. A nil or
// empty sequence encodes as "[]", never null.
func EncodeSeq[T any](seq []T) (string, error) {
	if len(seq) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(seq)
	if err != nil {
		return "", fmt.Errorf("encoding sequence: %w", err)
	}
	return string(b), nil
}

// DecodeSeq parses a stored text column back into a sequence. An empty column
// decodes as an empty sequence. A parse failure means the stored row is
// corrupt and is reported as an error, never silently defaulted.
func DecodeSeq[T any](raw string) ([]T, error) {
	if raw == "" || raw == "[]" {
		return []T{}, nil
	}
	var seq []T
	if err := json.Unmarshal([]byte(raw), &seq); err != nil {
		return nil, fmt.Errorf("decoding stored sequence: %w", err)
	}
	if seq == nil {
		seq = []T{}
	}
	return seq, nil
}
