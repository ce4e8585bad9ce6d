package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedBins is returned when a bin payload is valid JSON but not a list of bins
var ErrMalformedBins = errors.New("bin payload is not a sequence")

// Bin is one collection point as served by GET /bins
type Bin struct {
	BinID          string   `json:"bin_id"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	FillLevel      float64  `json:"fill_level"`
	Type           string   `json:"type"`
	OverflowProb   *float64 `json:"overflow_prob,omitempty"`
	PriorityScore  *float64 `json:"priority_score,omitempty"`
	TimeToCritical *float64 `json:"time_to_critical,omitempty"` // Hours
}

// BinSnapshot is the payload of one successful bin fetch.
// Snapshots are never patched: each fetch produces a new one with a higher Revision.
// Revision 0 is the empty snapshot held before any fetch succeeds.
type BinSnapshot struct {
	Revision uint64
	Payload  json.RawMessage
}

// NewBinSnapshot wraps a raw payload. Shape is not checked here.
func NewBinSnapshot(revision uint64, payload []byte) BinSnapshot {
	return BinSnapshot{
		Revision: revision,
		Payload:  json.RawMessage(payload),
	}
}

// SnapshotFromBins encodes an in-memory bin list as a snapshot
func SnapshotFromBins(revision uint64, bins []Bin) BinSnapshot {
	if bins == nil {
		bins = []Bin{}
	}
	payload, _ := json.Marshal(bins)
	return NewBinSnapshot(revision, payload)
}

// IsEmpty reports whether no payload has been stored yet
func (s BinSnapshot) IsEmpty() bool {
	return len(bytes.TrimSpace(s.Payload)) == 0
}

// Bins decodes the snapshot. An empty snapshot decodes to no bins.
// A payload that is not a JSON array returns ErrMalformedBins.
func (s BinSnapshot) Bins() ([]Bin, error) {
	trimmed := bytes.TrimSpace(s.Payload)
	if len(trimmed) == 0 {
		return []Bin{}, nil
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: payload starts with %q", ErrMalformedBins, trimmed[0])
	}

	var bins []Bin
	if err := json.Unmarshal(trimmed, &bins); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBins, err)
	}
	if bins == nil {
		bins = []Bin{}
	}
	return bins, nil
}
