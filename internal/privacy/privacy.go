// Package privacy detects likely-PII columns by name and produces the
// redacted catalog shared with external components under Privacy Mode.
//
// Detection is name-based only. Column values never leave the process, so
// the redactor's job is to keep column names and statistics of sensitive
// fields out of outbound intent-extraction prompts. SQL templates keep the
// original names: SQL executes locally against the user's own data.
package privacy

import (
	"fmt"
	"regexp"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// piiRule pairs a placeholder kind with the column-name pattern that
// triggers it. Rules are checked in order; the first match wins.
type piiRule struct {
	kind string
	re   *regexp.Regexp
}

var piiRules = []piiRule{
	{"EMAIL", regexp.MustCompile(`(?i)e[-_ ]?mail`)},
	{"PHONE", regexp.MustCompile(`(?i)phone|mobile|cell`)},
	{"SSN", regexp.MustCompile(`(?i)\bssn\b|social[-_ ]?security`)},
	{"ADDRESS", regexp.MustCompile(`(?i)address|street|postcode|zip[-_ ]?code`)},
	{"DOB", regexp.MustCompile(`(?i)\bdob\b|birth[-_ ]?date|date[-_ ]?of[-_ ]?birth`)},
	{"IP", regexp.MustCompile(`(?i)\bip[-_ ]?addr`)},
	{"NAME", regexp.MustCompile(`(?i)(first|last|full|middle|maiden)[-_ ]?name|person[-_ ]?name`)},
}

// Detect reports the PII kind of a column name, or "" when none matched.
func Detect(columnName string) string {
	for _, rule := range piiRules {
		if rule.re.MatchString(columnName) {
			return rule.kind
		}
	}
	return ""
}

// RedactCatalog returns a copy of cat with every detected PII column renamed
// to a stable placeholder (PII_EMAIL_1, PII_PHONE_1, ...) and its statistics
// stripped. Non-PII columns are copied unchanged. The input is never
// mutated.
func RedactCatalog(cat *model.Catalog) *model.Catalog {
	if cat == nil {
		return nil
	}
	out := &model.Catalog{
		Columns:  make([]model.Column, len(cat.Columns)),
		RowCount: cat.RowCount,
	}
	counts := map[string]int{}
	for i, col := range cat.Columns {
		redacted := col
		if kind := Detect(col.Name); kind != "" {
			counts[kind]++
			redacted.Name = fmt.Sprintf("PII_%s_%d", kind, counts[kind])
			redacted.Stats = nil
		}
		out.Columns[i] = redacted
	}
	return out
}

// HasPII reports whether any column of cat would be redacted.
func HasPII(cat *model.Catalog) bool {
	if cat == nil {
		return false
	}
	for _, col := range cat.Columns {
		if Detect(col.Name) != "" {
			return true
		}
	}
	return false
}
