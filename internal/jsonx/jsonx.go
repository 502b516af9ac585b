// Package jsonx provides JSON helpers used at the storage boundary.
//
// The persisted format is plain JSON, but one concern needs care:
// producing canonical bytes for content hashing so that unchanged records
// can be detected without a byte-by-byte file comparison.
package jsonx

import (
	"encoding/json"
	"fmt"
)

// Canonical marshals v into deterministic bytes suitable for hashing.
// encoding/json emits struct fields in declaration order, so marshaling the
// same value always yields the same bytes.
func Canonical(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}

// MarshalIndented renders v as the human-readable JSON written to disk.
func MarshalIndented(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}
