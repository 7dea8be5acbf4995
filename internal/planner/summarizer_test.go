package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

func TestSummarizeRowCount(t *testing.T) {
	sum := Summarize(model.AnalysisRowCount, []model.QueryResult{{
		Name:     QueryRowCount,
		Columns:  []string{"row_count"},
		Rows:     [][]any{{int64(1748)}},
		RowCount: 1,
	}})
	assert.Equal(t, "This dataset has **1,748** rows.", sum.Message)
	assert.Len(t, sum.Tables, 1)
	assert.Equal(t, QueryRowCount, sum.Tables[0].Title)
}

func TestSummarizeRowCountEmpty(t *testing.T) {
	sum := Summarize(model.AnalysisRowCount, nil)
	assert.Equal(t, "The row count query returned no results.", sum.Message)
}

func TestSummarizeTopCategories(t *testing.T) {
	sum := Summarize(model.AnalysisTopCategories, []model.QueryResult{{
		Name:    QueryTopCategories,
		Columns: []string{"category", "count"},
		Rows: [][]any{
			{"Electronics", int64(412)},
			{"Books", int64(200)},
			{"Toys", int64(88)},
		},
		RowCount: 3,
	}})
	assert.Equal(t, "Found **3** categories. The most common is **Electronics** with **412** rows.", sum.Message)
}

func TestSummarizeTrendDelta(t *testing.T) {
	sum := Summarize(model.AnalysisTrend, []model.QueryResult{{
		Name:    QueryMonthlyTrend,
		Columns: []string{"month", "count"},
		Rows: [][]any{
			{"2025-01-01", int64(100)},
			{"2025-02-01", int64(140)},
			{"2025-03-01", int64(160)},
		},
		RowCount: 3,
	}})
	assert.Contains(t, sum.Message, "**3** monthly buckets")
	assert.Contains(t, sum.Message, "from 100 in the first bucket to 160 in the last (+60)")
}

func TestSummarizeOutliersRawRows(t *testing.T) {
	sum := Summarize(model.AnalysisOutliers, []model.QueryResult{{
		Name:    QueryOutliers,
		Columns: []string{"column_name", "value", "mean", "stddev", "z_score", "row_index"},
		Rows: [][]any{
			{"amount", 9001.0, 120.0, 40.0, 222.0, int64(1)},
			{"amount", 8000.0, 120.0, 40.0, 197.0, int64(2)},
			{"quantity", 500.0, 3.0, 1.5, 331.3, int64(3)},
		},
		RowCount: 3,
	}})
	assert.Equal(t, "Detected **3** outlier values across **2** numeric columns.", sum.Message)
}

func TestSummarizeOutliersSafeMode(t *testing.T) {
	sum := Summarize(model.AnalysisOutliers, []model.QueryResult{{
		Name:    QueryOutliers,
		Columns: []string{"column_name", "outlier_count", "mean", "stddev", "min_value", "max_value"},
		Rows: [][]any{
			{"amount", int64(12), 120.0, 40.0, 900.0, 9001.0},
			{"quantity", int64(4), 3.0, 1.5, 60.0, 500.0},
		},
		RowCount: 2,
	}})
	assert.Equal(t, "Detected **16** outlier values across **2** numeric columns.", sum.Message)
}

func TestSummarizeDataQuality(t *testing.T) {
	sum := Summarize(model.AnalysisDataQuality, []model.QueryResult{
		{
			Name:     QueryNullCounts,
			Columns:  []string{"total_rows", "amount_nulls", "category_nulls"},
			Rows:     [][]any{{int64(1000), int64(25), int64(0)}},
			RowCount: 1,
		},
		{
			Name:     QueryDuplicateCheck,
			Columns:  []string{"total_rows", "unique_rows"},
			Rows:     [][]any{{int64(1000), int64(990)}},
			RowCount: 1,
		},
	})
	assert.Contains(t, sum.Message, "Across **1,000** rows, **25** null values were found in 1 columns.")
	assert.Contains(t, sum.Message, "**10** duplicate rows were detected.")
	assert.Len(t, sum.Tables, 2)
}

func TestSummarizeUsesReportedRowCount(t *testing.T) {
	// The executor truncates rows at the cap but reports the true count.
	sum := Summarize(model.AnalysisTopCategories, []model.QueryResult{{
		Name:     QueryTopCategories,
		Columns:  []string{"category", "count"},
		Rows:     [][]any{{"A", int64(10)}},
		RowCount: 37,
	}})
	assert.Contains(t, sum.Message, "Found **37** categories.")
}

func TestFormatInt(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		7:        "7",
		999:      "999",
		1000:     "1,000",
		1748:     "1,748",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for n, want := range cases {
		assert.Equal(t, want, formatInt(n), "formatInt(%d)", n)
	}
}
