package domain

import (
	"testing"

	"gorm.io/datatypes"
)

func TestMetadataMerge(t *testing.T) {
	base := Metadata{"a": "1", "b": "2"}
	out := base.Merge(Metadata{"b": "3", "c": "4"})

	if out["a"] != "1" {
		t.Errorf("existing key dropped: %v", out)
	}
	if out["b"] != "3" {
		t.Errorf("incoming key should win: %v", out)
	}
	if out["c"] != "4" {
		t.Errorf("new key missing: %v", out)
	}
	if base["b"] != "2" {
		t.Errorf("Merge mutated the receiver: %v", base)
	}
}

func TestMergeJSON(t *testing.T) {
	raw := datatypes.JSON(`{"origin":"checkout","attempt":1}`)
	out := MetadataFromJSON(MergeJSON(raw, Metadata{"attempt": 2}))

	if out["origin"] != "checkout" {
		t.Errorf("existing key dropped: %v", out)
	}
	// numbers round-trip as float64 through encoding/json
	if out["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", out["attempt"])
	}
}

func TestMetadataFromJSONInvalid(t *testing.T) {
	if m := MetadataFromJSON(datatypes.JSON(`not-json`)); len(m) != 0 {
		t.Errorf("invalid column should yield empty bag, got %v", m)
	}
	if m := MetadataFromJSON(nil); len(m) != 0 {
		t.Errorf("nil column should yield empty bag, got %v", m)
	}
}
