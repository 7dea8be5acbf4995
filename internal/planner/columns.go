package planner

import (
	"regexp"
	"strings"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Column detection helpers. All scan the catalog in order and return the
// first match, so results are deterministic for a fixed catalog.

var (
	reDateName        = regexp.MustCompile(`(?i)(date|time|created|updated|order|event)`)
	reCategoricalName = regexp.MustCompile(`(?i)(category|type|status|region|product|name|group|class)`)
)

// maxNumericColumns caps how many numeric columns the outlier and
// data-quality templates fan out over.
const maxNumericColumns = 10

// dateColumn returns the first column that is temporally typed or whose name
// looks like a date.
func dateColumn(cat *model.Catalog) (string, bool) {
	for _, col := range cat.Columns {
		if col.Type.Temporal() || reDateName.MatchString(col.Name) {
			return col.Name, true
		}
	}
	return "", false
}

// metricColumn returns the first numeric column whose name does not contain
// "id". Identifier-like columns make meaningless sums.
func metricColumn(cat *model.Catalog) (string, bool) {
	for _, col := range cat.Columns {
		if col.Type.Numeric() && !strings.Contains(strings.ToLower(col.Name), "id") {
			return col.Name, true
		}
	}
	return "", false
}

// categoricalColumn returns a text column, preferring names that look like a
// category over the first text column found.
func categoricalColumn(cat *model.Catalog) (string, bool) {
	var first string
	for _, col := range cat.Columns {
		if col.Type != model.TypeText {
			continue
		}
		if reCategoricalName.MatchString(col.Name) {
			return col.Name, true
		}
		if first == "" {
			first = col.Name
		}
	}
	return first, first != ""
}

// numericColumns returns every numeric column excluding identifier-like
// names, capped at maxNumericColumns.
func numericColumns(cat *model.Catalog) []string {
	var out []string
	for _, col := range cat.Columns {
		if !col.Type.Numeric() || strings.Contains(strings.ToLower(col.Name), "id") {
			continue
		}
		out = append(out, col.Name)
		if len(out) == maxNumericColumns {
			break
		}
	}
	return out
}

// quoteIdent double-quotes a column identifier, escaping embedded quotes.
// Catalog names may contain spaces or reserved words.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
