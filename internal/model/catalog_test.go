package model

import "testing"

func TestDatasetStatusWireValues(t *testing.T) {
	// The status strings are part of the persisted registry format and the
	// HTTP responses; renaming the constants must not change them.
	if DatasetRegistered != "registered" {
		t.Fatalf("unexpected registered value: %q", DatasetRegistered)
	}
	if DatasetIngested != "ingested" {
		t.Fatalf("unexpected ingested value: %q", DatasetIngested)
	}
}

func TestCatalogColumnLookup(t *testing.T) {
	cat := &Catalog{Columns: []Column{
		{Name: "order_date", Type: TypeDate},
		{Name: "amount", Type: TypeDouble},
	}}
	col := cat.Column("amount")
	if col == nil || col.Type != TypeDouble {
		t.Fatalf("lookup failed: %+v", col)
	}
	if cat.Column("missing") != nil {
		t.Fatal("expected nil for unknown column")
	}
}
