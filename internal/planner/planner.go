// Package planner turns a ready conversation context into deterministic SQL
// against the table `data`, and summarizes executed results.
//
// Templates are the source of truth: they are pure functions of the catalog
// and the analysis parameters, so planning twice with unchanged inputs yields
// byte-identical SQL. Natural-language understanding never reaches SQL
// generation; the only NLP output the planner consumes is the small
// structured context the state machine accumulated.
package planner

import (
	"fmt"
	"strings"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Query plan names. The client uses them as table titles and to match
// executed results back to the plan.
const (
	QueryRowCount       = "row_count"
	QueryTopCategories  = "top_categories"
	QueryMonthlyTrend   = "monthly_trend"
	QueryOutliers       = "outliers_detected"
	QueryNullCounts     = "null_counts"
	QueryDuplicateCheck = "duplicate_check"
)

const (
	defaultTopN     = 20
	trendRowLimit   = 200
	outlierRowLimit = 200
	perColumnLimit  = 50
)

// Options carries the analysis parameters accumulated by the state machine.
// Metric, GroupBy and DateColumn are optional column-name overrides from AI
// intent extraction; they are used only when present in the catalog.
type Options struct {
	TimePeriod model.TimePeriod
	Limit      int // top-N override; 0 means defaultTopN
	SafeMode   bool
	Metric     string
	GroupBy    string
	DateColumn string
}

// Plan is an ordered list of named queries plus a human-readable explanation
// of what the plan computes (or why it fell back).
type Plan struct {
	Queries     []model.PlannedQuery
	Explanation string
}

// Build emits the SQL template for the given analysis type. When a required
// column is missing from the catalog, the plan falls back to a row count
// with an explanation rather than failing the turn.
func Build(analysis model.AnalysisType, cat *model.Catalog, opts Options) (Plan, error) {
	if !analysis.Valid() {
		return Plan{}, fmt.Errorf("planner: unknown analysis type %q", analysis)
	}
	if cat == nil {
		cat = &model.Catalog{}
	}

	switch analysis {
	case model.AnalysisRowCount:
		return rowCountPlan("Counting all rows in the dataset."), nil
	case model.AnalysisTopCategories:
		return topCategoriesPlan(cat, opts), nil
	case model.AnalysisTrend:
		return trendPlan(cat, opts), nil
	case model.AnalysisOutliers:
		return outliersPlan(cat, opts), nil
	case model.AnalysisDataQuality:
		return dataQualityPlan(cat), nil
	}
	return Plan{}, fmt.Errorf("planner: unknown analysis type %q", analysis)
}

func rowCountPlan(explanation string) Plan {
	return Plan{
		Queries: []model.PlannedQuery{
			{Name: QueryRowCount, SQL: "SELECT COUNT(*) as row_count FROM data"},
		},
		Explanation: explanation,
	}
}

func topCategoriesPlan(cat *model.Catalog, opts Options) Plan {
	col, ok := overrideOrDetect(cat, opts.GroupBy, func(c *model.Column) bool {
		return c.Type == model.TypeText
	}, categoricalColumn)
	if !ok {
		return rowCountPlan("No categorical column was found in this dataset, so here is the row count instead.")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultTopN
	}
	sql := fmt.Sprintf(
		"SELECT %s AS category, COUNT(*) AS count FROM data GROUP BY %s ORDER BY count DESC LIMIT %d",
		quoteIdent(col), quoteIdent(col), limit,
	)
	return Plan{
		Queries:     []model.PlannedQuery{{Name: QueryTopCategories, SQL: sql}},
		Explanation: fmt.Sprintf("Top %d values of %q by row count.", limit, col),
	}
}

func trendPlan(cat *model.Catalog, opts Options) Plan {
	date, ok := overrideOrDetect(cat, opts.DateColumn, func(c *model.Column) bool {
		return c.Type.Temporal() || reDateName.MatchString(c.Name)
	}, dateColumn)
	if !ok {
		return rowCountPlan("No date column was found in this dataset, so here is the row count instead.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT DATE_TRUNC('month', %s) AS month, COUNT(*) AS count", quoteIdent(date))

	explanation := "Monthly trend of row counts"
	metric, hasMetric := overrideOrDetect(cat, opts.Metric, func(c *model.Column) bool {
		return c.Type.Numeric()
	}, metricColumn)
	if hasMetric {
		fmt.Fprintf(&b, ", SUM(%s) AS %s, AVG(%s) AS %s",
			quoteIdent(metric), quoteIdent("total_"+metric),
			quoteIdent(metric), quoteIdent("avg_"+metric))
		explanation = fmt.Sprintf("Monthly trend of row counts and %q", metric)
	}
	fmt.Fprintf(&b, " FROM data GROUP BY month ORDER BY month LIMIT %d", trendRowLimit)

	return Plan{
		Queries:     []model.PlannedQuery{{Name: QueryMonthlyTrend, SQL: b.String()}},
		Explanation: explanation + fmt.Sprintf(", bucketed by %q.", date),
	}
}

func outliersPlan(cat *model.Catalog, opts Options) Plan {
	cols := numericColumns(cat)
	if len(cols) == 0 {
		return rowCountPlan("No numeric columns were found in this dataset, so here is the row count instead.")
	}

	branches := make([]string, 0, len(cols))
	for _, col := range cols {
		if opts.SafeMode {
			branches = append(branches, outlierSummaryBranch(col))
		} else {
			branches = append(branches, outlierRowBranch(col))
		}
	}
	sql := fmt.Sprintf("SELECT * FROM (%s) AS outliers LIMIT %d",
		strings.Join(branches, " UNION ALL "), outlierRowLimit)

	explanation := fmt.Sprintf("Values more than 2 standard deviations from the mean across %d numeric columns.", len(cols))
	if opts.SafeMode {
		explanation = fmt.Sprintf("Outlier counts per numeric column (%d columns), using a 2 standard deviation threshold.", len(cols))
	}
	return Plan{
		Queries:     []model.PlannedQuery{{Name: QueryOutliers, SQL: sql}},
		Explanation: explanation,
	}
}

// outlierRowBranch emits the per-column z-score query. Mean and stddev are
// correlated subqueries so every value is measured against the same
// population statistics.
func outlierRowBranch(col string) string {
	q := quoteIdent(col)
	mean := fmt.Sprintf("(SELECT AVG(%s) FROM data WHERE %s IS NOT NULL)", q, q)
	stddev := fmt.Sprintf("(SELECT STDDEV(%s) FROM data WHERE %s IS NOT NULL)", q, q)
	return fmt.Sprintf(
		"(SELECT %s AS column_name, %s AS value, %s AS mean, %s AS stddev, "+
			"(%s - %s) / %s AS z_score, ROW_NUMBER() OVER () AS row_index "+
			"FROM data WHERE %s IS NOT NULL AND ABS(%s - %s) > 2 * %s LIMIT %d)",
		quoteLiteral(col), q, mean, stddev,
		q, mean, stddev,
		q, q, mean, stddev, perColumnLimit,
	)
}

// outlierSummaryBranch is the Safe Mode variant: aggregates only, no raw
// values leave the engine.
func outlierSummaryBranch(col string) string {
	q := quoteIdent(col)
	mean := fmt.Sprintf("(SELECT AVG(%s) FROM data WHERE %s IS NOT NULL)", q, q)
	stddev := fmt.Sprintf("(SELECT STDDEV(%s) FROM data WHERE %s IS NOT NULL)", q, q)
	return fmt.Sprintf(
		"(SELECT %s AS column_name, COUNT(*) AS outlier_count, %s AS mean, %s AS stddev, "+
			"MIN(%s) AS min_value, MAX(%s) AS max_value "+
			"FROM data WHERE %s IS NOT NULL AND ABS(%s - %s) > 2 * %s)",
		quoteLiteral(col), mean, stddev,
		q, q,
		q, q, mean, stddev,
	)
}

func dataQualityPlan(cat *model.Catalog) Plan {
	if len(cat.Columns) == 0 {
		return rowCountPlan("The dataset catalog has no columns, so here is the row count instead.")
	}

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) AS total_rows")
	for _, col := range cat.Columns {
		fmt.Fprintf(&b, ", SUM(CASE WHEN %s IS NULL THEN 1 ELSE 0 END) AS %s",
			quoteIdent(col.Name), quoteIdent(col.Name+"_nulls"))
	}
	b.WriteString(" FROM data")
	queries := []model.PlannedQuery{{Name: QueryNullCounts, SQL: b.String()}}

	// Distinct-row count over the full column tuple. DuckDB accepts a row
	// constructor inside COUNT(DISTINCT ...).
	quoted := make([]string, len(cat.Columns))
	for i, col := range cat.Columns {
		quoted[i] = quoteIdent(col.Name)
	}
	dup := fmt.Sprintf("SELECT COUNT(*) AS total_rows, COUNT(DISTINCT (%s)) AS unique_rows FROM data",
		strings.Join(quoted, ", "))
	queries = append(queries, model.PlannedQuery{Name: QueryDuplicateCheck, SQL: dup})

	return Plan{
		Queries:     queries,
		Explanation: "Null counts per column and a duplicate-row check.",
	}
}

// overrideOrDetect prefers an explicitly requested column when it exists in
// the catalog and satisfies accept; otherwise it falls back to the detector.
func overrideOrDetect(cat *model.Catalog, override string, accept func(*model.Column) bool, detect func(*model.Catalog) (string, bool)) (string, bool) {
	if override != "" {
		if col := cat.Column(override); col != nil && accept(col) {
			return col.Name, true
		}
	}
	return detect(cat)
}

// quoteLiteral single-quotes a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
