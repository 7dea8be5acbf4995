// Package model defines the closed vocabularies, request/response envelopes,
// and audit types shared by the router, state machine, planner, and HTTP layer.
package model

// AnalysisType is the closed set of questions the system can answer.
type AnalysisType string

const (
	AnalysisRowCount      AnalysisType = "row_count"
	AnalysisTopCategories AnalysisType = "top_categories"
	AnalysisTrend         AnalysisType = "trend"
	AnalysisOutliers      AnalysisType = "outliers"
	AnalysisDataQuality   AnalysisType = "data_quality"
)

// AllAnalysisTypes lists every analysis type in display order. Clarification
// choices are generated from this slice, so the order is user-facing.
var AllAnalysisTypes = []AnalysisType{
	AnalysisRowCount,
	AnalysisTopCategories,
	AnalysisTrend,
	AnalysisOutliers,
	AnalysisDataQuality,
}

// Valid reports whether a is a member of the closed analysis-type set.
func (a AnalysisType) Valid() bool {
	switch a {
	case AnalysisRowCount, AnalysisTopCategories, AnalysisTrend, AnalysisOutliers, AnalysisDataQuality:
		return true
	}
	return false
}

// WholeDataset reports whether the analysis is defined over the entire dataset.
// These types ignore any client-sent time period and force all_time.
func (a AnalysisType) WholeDataset() bool {
	return a == AnalysisRowCount || a == AnalysisDataQuality
}

// Label returns the display label shown on clarification buttons.
func (a AnalysisType) Label() string {
	switch a {
	case AnalysisRowCount:
		return "Row count"
	case AnalysisTopCategories:
		return "Top categories"
	case AnalysisTrend:
		return "Trend"
	case AnalysisOutliers:
		return "Outliers"
	case AnalysisDataQuality:
		return "Data quality"
	}
	return string(a)
}

// TimePeriod is the closed set of time windows an analysis can cover.
type TimePeriod string

const (
	PeriodLast7Days   TimePeriod = "last_7_days"
	PeriodLast30Days  TimePeriod = "last_30_days"
	PeriodLast90Days  TimePeriod = "last_90_days"
	PeriodAllTime     TimePeriod = "all_time"
	PeriodUnspecified TimePeriod = "unspecified"
)

// AllTimePeriods lists the selectable periods in display order. Unspecified is
// a sentinel, not a choice.
var AllTimePeriods = []TimePeriod{
	PeriodLast7Days,
	PeriodLast30Days,
	PeriodLast90Days,
	PeriodAllTime,
}

// Valid reports whether p is a member of the closed time-period set,
// including the unspecified sentinel.
func (p TimePeriod) Valid() bool {
	switch p {
	case PeriodLast7Days, PeriodLast30Days, PeriodLast90Days, PeriodAllTime, PeriodUnspecified:
		return true
	}
	return false
}

// Label returns the display label shown on clarification buttons.
func (p TimePeriod) Label() string {
	switch p {
	case PeriodLast7Days:
		return "Last 7 days"
	case PeriodLast30Days:
		return "Last 30 days"
	case PeriodLast90Days:
		return "Last 90 days"
	case PeriodAllTime:
		return "All time"
	}
	return string(p)
}

// Intent names a structured context field set by a UI button click.
type Intent string

const (
	IntentSetAnalysisType Intent = "set_analysis_type"
	IntentSetTimePeriod   Intent = "set_time_period"
	IntentSetMetric       Intent = "set_metric"
	IntentSetGroupBy      Intent = "set_group_by"
	IntentSetDateColumn   Intent = "set_date_column"
)

// Valid reports whether i is a recognized intent name.
func (i Intent) Valid() bool {
	switch i {
	case IntentSetAnalysisType, IntentSetTimePeriod, IntentSetMetric, IntentSetGroupBy, IntentSetDateColumn:
		return true
	}
	return false
}

// displayToInternal maps button labels back to internal enum values. The state
// machine works exclusively in enum space; labels exist only at this frontier.
var displayToInternal = map[string]string{
	"Row count":      string(AnalysisRowCount),
	"Top categories": string(AnalysisTopCategories),
	"Trend":          string(AnalysisTrend),
	"Outliers":       string(AnalysisOutliers),
	"Data quality":   string(AnalysisDataQuality),
	"Last 7 days":    string(PeriodLast7Days),
	"Last 30 days":   string(PeriodLast30Days),
	"Last 90 days":   string(PeriodLast90Days),
	"All time":       string(PeriodAllTime),
}

// NormalizeIntentValue converts a display label to its internal value.
// Unknown values pass through unchanged so clients may send enum values
// directly.
func NormalizeIntentValue(value string) string {
	if internal, ok := displayToInternal[value]; ok {
		return internal
	}
	return value
}
