package timberline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// This file contains the JSON document form of a Snapshot, as persisted by the
// stores and served by the API:
//
//	{ "totalValueThousands": 123, "filing": "/13f/...", "positions": [ {...}, ... ] }
//
// Readers also accept the legacy form: a bare array of positions, without total.

// DecodeSnapshot reads a snapshot document from r.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cannot read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot parses a snapshot document in either the wrapped object form or
// the bare array form.
//
// It returns an error wrapping ErrDataShape for any other document.
func ParseSnapshot(data []byte) (Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty document", ErrDataShape)
	}

	switch data[0] {
	case '[':
		var positions []Position
		if err := json.Unmarshal(data, &positions); err != nil {
			return Snapshot{}, fmt.Errorf("%w: cannot parse positions array: %v", ErrDataShape, err)
		}
		if positions == nil {
			positions = []Position{}
		}
		return Snapshot{Positions: positions}, nil

	case '{':
		// jsnapshot is the object read from the document. Positions is a pointer
		// to tell a missing or null member from an empty one.
		var jsnapshot struct {
			TotalValueThousands *float64    `json:"totalValueThousands"`
			Filing              FilingID    `json:"filing"`
			Positions           *[]Position `json:"positions"`
		}
		if err := json.Unmarshal(data, &jsnapshot); err != nil {
			return Snapshot{}, fmt.Errorf("%w: cannot parse snapshot object: %v", ErrDataShape, err)
		}
		if jsnapshot.Positions == nil || *jsnapshot.Positions == nil {
			return Snapshot{}, fmt.Errorf("%w: missing \"positions\" array", ErrDataShape)
		}
		return Snapshot{
			TotalValueThousands: jsnapshot.TotalValueThousands,
			Filing:              jsnapshot.Filing,
			Positions:           *jsnapshot.Positions,
		}, nil

	default:
		return Snapshot{}, fmt.Errorf("%w: neither an object nor an array", ErrDataShape)
	}
}

// EncodeSnapshot writes s to w in the wrapped object form, indented.
func EncodeSnapshot(w io.Writer, s Snapshot) error {
	if s.Positions == nil {
		s.Positions = []Position{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("cannot encode snapshot: %w", err)
	}
	return nil
}

// MarshalSnapshot returns the document form of s.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
