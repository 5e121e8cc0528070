package history

import (
	"testing"
)

func TestEntryListRoundTrip(t *testing.T) {
	entries := EntryList{
		{ConditionID: "eczema", ConfidencePercent: 82},
		{ConditionID: "psoriasis", ConfidencePercent: 11},
	}

	value, err := entries.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned EntryList
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(scanned) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(scanned))
	}
	if scanned[0].ConditionID != "eczema" || scanned[0].ConfidencePercent != 82 {
		t.Fatalf("unexpected first entry: %+v", scanned[0])
	}
}

func TestEntryListScanNil(t *testing.T) {
	var entries EntryList
	if err := entries.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil list, got %v", entries)
	}
}

func TestEntryListNilValue(t *testing.T) {
	var entries EntryList
	value, err := entries.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if value != "[]" {
		t.Fatalf("expected empty JSON array, got %v", value)
	}
}
