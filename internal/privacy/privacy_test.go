package privacy

import (
	"testing"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		column string
		want   string
	}{
		{"email", "EMAIL"},
		{"customer_e-mail", "EMAIL"},
		{"phone_number", "PHONE"},
		{"mobile", "PHONE"},
		{"ssn", "SSN"},
		{"social_security_number", "SSN"},
		{"street_address", "ADDRESS"},
		{"zip_code", "ADDRESS"},
		{"dob", "DOB"},
		{"date_of_birth", "DOB"},
		{"ip_address", "IP"},
		{"first_name", "NAME"},
		{"full name", "NAME"},
		{"amount", ""},
		{"category", ""},
		{"name_of_product", ""}, // bare "name" prefix alone is not PII
	}
	for _, tc := range cases {
		if got := Detect(tc.column); got != tc.want {
			t.Errorf("Detect(%q) = %q, want %q", tc.column, got, tc.want)
		}
	}
}

func TestRedactCatalog(t *testing.T) {
	mean := 4.5
	cat := &model.Catalog{
		RowCount: 100,
		Columns: []model.Column{
			{Name: "email", Type: model.TypeText},
			{Name: "backup_email", Type: model.TypeText},
			{Name: "amount", Type: model.TypeDouble, Stats: &model.ColumnStats{Mean: &mean}},
		},
	}

	out := RedactCatalog(cat)
	if out.Columns[0].Name != "PII_EMAIL_1" {
		t.Fatalf("expected PII_EMAIL_1, got %s", out.Columns[0].Name)
	}
	if out.Columns[1].Name != "PII_EMAIL_2" {
		t.Fatalf("expected PII_EMAIL_2, got %s", out.Columns[1].Name)
	}
	if out.Columns[2].Name != "amount" {
		t.Fatalf("non-PII column renamed to %s", out.Columns[2].Name)
	}
	if out.Columns[2].Stats == nil {
		t.Fatal("non-PII stats must survive redaction")
	}
	if out.RowCount != 100 {
		t.Fatalf("row count changed: %d", out.RowCount)
	}

	// The input catalog must be untouched.
	if cat.Columns[0].Name != "email" {
		t.Fatal("input catalog was mutated")
	}
}

func TestRedactCatalogStripsStats(t *testing.T) {
	mean := 555.0
	cat := &model.Catalog{Columns: []model.Column{
		{Name: "phone", Type: model.TypeInteger, Stats: &model.ColumnStats{Mean: &mean}},
	}}
	out := RedactCatalog(cat)
	if out.Columns[0].Stats != nil {
		t.Fatal("PII column stats must be stripped")
	}
}

func TestHasPII(t *testing.T) {
	if HasPII(&model.Catalog{Columns: []model.Column{{Name: "amount"}}}) {
		t.Fatal("amount is not PII")
	}
	if !HasPII(&model.Catalog{Columns: []model.Column{{Name: "amount"}, {Name: "ssn"}}}) {
		t.Fatal("ssn should be PII")
	}
	if HasPII(nil) {
		t.Fatal("nil catalog has no PII")
	}
}
