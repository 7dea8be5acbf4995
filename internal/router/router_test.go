package router

import (
	"testing"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

func TestRouteStrongMatches(t *testing.T) {
	cases := []struct {
		message string
		want    model.AnalysisType
	}{
		{"how many rows do we have?", model.AnalysisRowCount},
		{"what's the total row count", model.AnalysisRowCount},
		{"show me the monthly trend", model.AnalysisTrend},
		{"sales over time please", model.AnalysisTrend},
		{"any outliers in the amounts?", model.AnalysisOutliers},
		{"find anomalies", model.AnalysisOutliers},
		{"top 10 products", model.AnalysisTopCategories},
		{"breakdown by category", model.AnalysisTopCategories},
		{"are there missing values or duplicates?", model.AnalysisDataQuality},
		{"check data quality", model.AnalysisDataQuality},
	}
	for _, tc := range cases {
		d := Route(tc.message)
		if d.Type != tc.want {
			t.Errorf("Route(%q) = %s, want %s", tc.message, d.Type, tc.want)
		}
		if d.Confidence < Accept {
			t.Errorf("Route(%q) confidence %.2f, want >= %.2f", tc.message, d.Confidence, Accept)
		}
	}
}

func TestRouteWeakOnlyStaysBelowAccept(t *testing.T) {
	// "compare" and "distribution" are both weak hints for top_categories.
	d := Route("compare the distribution")
	if d.Type != model.AnalysisTopCategories {
		t.Fatalf("expected top_categories, got %s", d.Type)
	}
	if d.Confidence >= Accept {
		t.Fatalf("weak-only match must stay below %.2f, got %.2f", Accept, d.Confidence)
	}
	if d.Confidence < Floor {
		t.Fatalf("two weak hints should clear the floor, got %.2f", d.Confidence)
	}
}

func TestRouteNoMatch(t *testing.T) {
	d := Route("tell me something interesting")
	if d.Type != "" {
		t.Fatalf("expected no classification, got %s", d.Type)
	}
	if d.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %.2f", d.Confidence)
	}
}

func TestRouteStrongPlusWeakBonus(t *testing.T) {
	// "how many rows" is strong for row_count and "how many" is weak support.
	d := Route("how many rows are there")
	if d.Type != model.AnalysisRowCount {
		t.Fatalf("expected row_count, got %s", d.Type)
	}
	if d.Confidence != 0.95 {
		t.Fatalf("expected 0.95, got %.2f", d.Confidence)
	}
}

func TestRouteConfidenceCap(t *testing.T) {
	// Two strong matches plus weak support would exceed 1.0 without the cap.
	d := Route("top 3 highest ranked categories, grouped by region")
	if d.Confidence > 1.0 {
		t.Fatalf("confidence must cap at 1.0, got %.2f", d.Confidence)
	}
}

func TestRouteTieBreakPrefersEarlierEntry(t *testing.T) {
	// Two weak hints each for trend (history, pattern) and top_categories
	// (distribution, compare) score identically; the earlier table entry wins.
	d := Route("compare the distribution against the history pattern")
	if d.Type != model.AnalysisTrend {
		t.Fatalf("expected trend on tie, got %s", d.Type)
	}
}

func TestExtractTimePeriod(t *testing.T) {
	cases := []struct {
		message string
		want    model.TimePeriod
	}{
		{"orders in the last 7 days", model.PeriodLast7Days},
		{"row counts for the past week", model.PeriodLast7Days},
		{"trend over the last 30 days", model.PeriodLast30Days},
		{"what happened this month", model.PeriodLast30Days},
		{"revenue for the past quarter", model.PeriodLast90Days},
		{"all time top sellers", model.PeriodAllTime},
		{"across the entire dataset", model.PeriodAllTime},
		{"just the trend", ""},
	}
	for _, tc := range cases {
		d := Route(tc.message)
		if d.Params.TimePeriod != tc.want {
			t.Errorf("Route(%q) period = %q, want %q", tc.message, d.Params.TimePeriod, tc.want)
		}
	}
}

func TestExtractTopN(t *testing.T) {
	d := Route("top 15 customers by revenue")
	if d.Params.Limit != 15 {
		t.Fatalf("expected limit 15, got %d", d.Params.Limit)
	}
	if Route("top customers").Params.Limit != 0 {
		t.Fatal("expected no limit without a number")
	}
}
