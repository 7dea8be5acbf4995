package planner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Summary is the results-derived answer for one completed plan.
type Summary struct {
	Message string
	Tables  []model.Table
}

// Summarize produces a markdown answer derived strictly from the executed
// result tables, plus one rendered table per result. It never invents
// numbers: every figure in the message is read out of the results.
func Summarize(analysis model.AnalysisType, results []model.QueryResult) Summary {
	s := Summary{Tables: make([]model.Table, 0, len(results))}
	for _, r := range results {
		s.Tables = append(s.Tables, model.Table{Title: r.Name, Columns: r.Columns, Rows: r.Rows})
	}

	switch analysis {
	case model.AnalysisRowCount:
		s.Message = summarizeRowCount(results)
	case model.AnalysisTopCategories:
		s.Message = summarizeTopCategories(results)
	case model.AnalysisTrend:
		s.Message = summarizeTrend(results)
	case model.AnalysisOutliers:
		s.Message = summarizeOutliers(results)
	case model.AnalysisDataQuality:
		s.Message = summarizeDataQuality(results)
	default:
		s.Message = "Analysis complete."
	}
	return s
}

func summarizeRowCount(results []model.QueryResult) string {
	r := findResult(results, QueryRowCount)
	if r == nil || len(r.Rows) == 0 {
		return "The row count query returned no results."
	}
	idx := columnIndex(r.Columns, "row_count")
	if idx < 0 {
		idx = 0
	}
	n, ok := cellInt(r.Rows[0], idx)
	if !ok {
		return "The row count query returned a non-numeric result."
	}
	return fmt.Sprintf("This dataset has **%s** rows.", formatInt(n))
}

func summarizeTopCategories(results []model.QueryResult) string {
	r := findResult(results, QueryTopCategories)
	if r == nil || len(r.Rows) == 0 {
		return "No categories were found."
	}
	buckets := resultRowCount(r)

	catIdx := columnIndex(r.Columns, "category")
	if catIdx < 0 {
		catIdx = 0
	}
	cntIdx := columnIndex(r.Columns, "count")
	if cntIdx < 0 && len(r.Columns) > 1 {
		cntIdx = 1
	}

	top := fmt.Sprintf("%v", r.Rows[0][catIdx])
	msg := fmt.Sprintf("Found **%s** categories.", formatInt(int64(buckets)))
	if cntIdx >= 0 {
		if n, ok := cellInt(r.Rows[0], cntIdx); ok {
			return fmt.Sprintf("%s The most common is **%s** with **%s** rows.", msg, top, formatInt(n))
		}
	}
	return fmt.Sprintf("%s The most common is **%s**.", msg, top)
}

func summarizeTrend(results []model.QueryResult) string {
	r := findResult(results, QueryMonthlyTrend)
	if r == nil || len(r.Rows) == 0 {
		return "The trend query returned no time buckets."
	}
	buckets := resultRowCount(r)
	msg := fmt.Sprintf("The trend covers **%s** monthly buckets.", formatInt(int64(buckets)))

	cntIdx := columnIndex(r.Columns, "count")
	if cntIdx >= 0 && len(r.Rows) >= 2 {
		first, ok1 := cellFloat(r.Rows[0], cntIdx)
		last, ok2 := cellFloat(r.Rows[len(r.Rows)-1], cntIdx)
		if ok1 && ok2 {
			delta := last - first
			sign := "+"
			if delta < 0 {
				sign = ""
			}
			msg += fmt.Sprintf(" Counts moved from %s in the first bucket to %s in the last (%s%s).",
				formatFloat(first), formatFloat(last), sign, formatFloat(delta))
		}
	}
	return msg
}

func summarizeOutliers(results []model.QueryResult) string {
	r := findResult(results, QueryOutliers)
	if r == nil || len(r.Rows) == 0 {
		return "No outliers were detected."
	}

	// Safe Mode plans return one summary row per column with an
	// outlier_count; otherwise each row is a single outlier value.
	if cntIdx := columnIndex(r.Columns, "outlier_count"); cntIdx >= 0 {
		var total int64
		for _, row := range r.Rows {
			if n, ok := cellInt(row, cntIdx); ok {
				total += n
			}
		}
		return fmt.Sprintf("Detected **%s** outlier values across **%d** numeric columns.",
			formatInt(total), len(r.Rows))
	}

	colIdx := columnIndex(r.Columns, "column_name")
	cols := map[string]struct{}{}
	if colIdx >= 0 {
		for _, row := range r.Rows {
			cols[fmt.Sprintf("%v", row[colIdx])] = struct{}{}
		}
	}
	total := resultRowCount(r)
	if len(cols) > 0 {
		return fmt.Sprintf("Detected **%s** outlier values across **%d** numeric columns.",
			formatInt(int64(total)), len(cols))
	}
	return fmt.Sprintf("Detected **%s** outlier values.", formatInt(int64(total)))
}

func summarizeDataQuality(results []model.QueryResult) string {
	var parts []string

	if r := findResult(results, QueryNullCounts); r != nil && len(r.Rows) > 0 {
		row := r.Rows[0]
		var totalRows, totalNulls int64
		affected := 0
		for i, col := range r.Columns {
			n, ok := cellInt(row, i)
			if !ok {
				continue
			}
			if strings.EqualFold(col, "total_rows") {
				totalRows = n
			} else if strings.HasSuffix(strings.ToLower(col), "_nulls") {
				totalNulls += n
				if n > 0 {
					affected++
				}
			}
		}
		parts = append(parts, fmt.Sprintf("Across **%s** rows, **%s** null values were found in %d columns.",
			formatInt(totalRows), formatInt(totalNulls), affected))
	}

	if r := findResult(results, QueryDuplicateCheck); r != nil && len(r.Rows) > 0 {
		totalIdx := columnIndex(r.Columns, "total_rows")
		uniqueIdx := columnIndex(r.Columns, "unique_rows")
		if totalIdx >= 0 && uniqueIdx >= 0 {
			total, ok1 := cellInt(r.Rows[0], totalIdx)
			unique, ok2 := cellInt(r.Rows[0], uniqueIdx)
			if ok1 && ok2 {
				parts = append(parts, fmt.Sprintf("**%s** duplicate rows were detected.", formatInt(total-unique)))
			}
		}
	}

	if len(parts) == 0 {
		return "The data quality queries returned no results."
	}
	return strings.Join(parts, " ")
}

// findResult locates a result by plan name (case-insensitive), falling back
// to the first result so a renamed client-side table still summarizes.
func findResult(results []model.QueryResult, name string) *model.QueryResult {
	for i := range results {
		if strings.EqualFold(results[i].Name, name) {
			return &results[i]
		}
	}
	if len(results) > 0 {
		return &results[0]
	}
	return nil
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// resultRowCount prefers the executor-reported count, which exceeds
// len(Rows) when output was truncated.
func resultRowCount(r *model.QueryResult) int {
	if r.RowCount > len(r.Rows) {
		return r.RowCount
	}
	return len(r.Rows)
}

func cellInt(row []any, idx int) (int64, bool) {
	if idx < 0 || idx >= len(row) {
		return 0, false
	}
	switch v := row[idx].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func cellFloat(row []any, idx int) (float64, bool) {
	if idx < 0 || idx >= len(row) {
		return 0, false
	}
	switch v := row[idx].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// formatInt renders n with thousands separators ("1748" -> "1,748").
func formatInt(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// formatFloat drops a trailing ".0" so whole counts read as integers.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return formatInt(int64(f))
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
