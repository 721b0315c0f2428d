package model

import (
	"encoding/json"
	"time"
)

// SourceTier classifies a source's evidentiary authority.
type SourceTier string

const (
	TierOriginal   SourceTier = "original"   // parish registers, civil records, archive images
	TierDerivative SourceTier = "derivative" // indexes, transcriptions, extracts
	TierAuthored   SourceTier = "authored"   // family trees, compilations, GEDCOM uploads
)

// Valid reports whether t is a known tier.
func (t SourceTier) Valid() bool {
	switch t {
	case TierOriginal, TierDerivative, TierAuthored:
		return true
	}
	return false
}

// Weight returns the evidence weight used when combining observations.
func (t SourceTier) Weight() float64 {
	switch t {
	case TierOriginal:
		return 3.0
	case TierDerivative:
		return 2.0
	default:
		return 1.0
	}
}

// SourceMetadata is the declarative description a source registers with.
type SourceMetadata struct {
	Regions     []Region   `json:"regions,omitempty"`
	RecordTypes []string   `json:"record_types,omitempty"`
	TierHint    SourceTier `json:"tier_hint,omitempty"`
}

// SupportsRegion reports whether the source declares support for region.
func (m SourceMetadata) SupportsRegion(region Region) bool {
	for _, r := range m.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// RawRecord is one record as returned by a source, before any resolution.
// ExtractedFields is string-keyed because sources are open-ended; RawData is
// the source's original payload, kept opaque.
type RawRecord struct {
	Source          string            `json:"source"`
	RecordID        string            `json:"record_id"` // unique within Source
	RecordType      string            `json:"record_type"`
	URL             string            `json:"url,omitempty"`
	ExtractedFields map[string]string `json:"extracted_fields"`
	RawData         json.RawMessage   `json:"raw_data,omitempty"`
	ConfidenceHint  *float64          `json:"confidence_hint,omitempty"` // [0,1], nil = unknown
	AccessedAt      time.Time         `json:"accessed_at"`
}

// Confidence returns the record's confidence hint, defaulting to 0.5 when the
// source did not provide one or provided one outside [0,1].
func (r RawRecord) Confidence() float64 {
	if r.ConfidenceHint == nil {
		return 0.5
	}
	c := *r.ConfidenceHint
	if c < 0 || c > 1 {
		return 0.5
	}
	return c
}

// Key returns the record's globally unique identifier.
func (r RawRecord) Key() string { return r.Source + "/" + r.RecordID }
