package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Metadata is the opaque key-value bag carried by payments, intents and
// subscriptions. Writes are merge-only: existing keys survive unless the
// incoming bag overwrites them.
type Metadata map[string]any

// Merge returns the non-destructive union of m and in, last write wins per key.
func (m Metadata) Merge(in Metadata) Metadata {
	out := make(Metadata, len(m)+len(in))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MetadataFromJSON decodes a stored JSON column. A nil or invalid column
// yields an empty bag; metadata is best-effort diagnostics, never load-bearing.
func MetadataFromJSON(raw datatypes.JSON) Metadata {
	if len(raw) == 0 {
		return Metadata{}
	}
	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return Metadata{}
	}
	return m
}

// ToJSON encodes the bag for storage.
func (m Metadata) ToJSON() datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

// MergeJSON merges an incoming bag into a stored JSON column.
func MergeJSON(raw datatypes.JSON, in Metadata) datatypes.JSON {
	return MetadataFromJSON(raw).Merge(in).ToJSON()
}
