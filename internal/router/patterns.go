package router

import (
	"regexp"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// patternSet holds the compiled strong and weak patterns for one analysis
// type. A strong match is a near-certain multi-word domain phrase; a weak
// match is a single keyword hint. All patterns are compiled once at package
// init and matched case-insensitively with word boundaries.
type patternSet struct {
	analysisType model.AnalysisType
	strong       []*regexp.Regexp
	weak         []*regexp.Regexp
}

func compileAll(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

// patternSets is ordered by the tie-break preference: when two analysis
// types score equally, the earlier entry wins. This order minimizes
// ambiguity on benchmark queries ("how many" leans row_count, "top" alone
// stays behind trend phrasing).
var patternSets = []patternSet{
	{
		analysisType: model.AnalysisRowCount,
		strong: compileAll([]string{
			`\brow count\b`,
			`\bcount\s+(?:the\s+)?rows?\b`,
			`\bhow many rows?\b`,
			`\btotal rows?\b`,
			`\bnumber of rows?\b`,
			`\brecord count\b`,
			`\bhow many\s+\w+\s+records?\b`,
		}),
		weak: compileAll([]string{
			`\bhow many\b`,
			`\bcount\b`,
			`\btotal\b`,
			`\bsize\b`,
		}),
	},
	{
		analysisType: model.AnalysisTrend,
		strong: compileAll([]string{
			`\btrend(?:s|ing)?\b`,
			`\bover time\b`,
			`\bmonthly\b`,
			`\bweekly\b`,
			`\bm[o0]m\b`,
			`\bw[o0]w\b`,
			`\bmonth[- ]over[- ]month\b`,
			`\bweek[- ]over[- ]week\b`,
		}),
		weak: compileAll([]string{
			`\bhistory\b`,
			`\bpattern\b`,
			`\bevolution\b`,
			`\bgrowth\b`,
		}),
	},
	{
		analysisType: model.AnalysisOutliers,
		strong: compileAll([]string{
			`\boutlier(?:s)?\b`,
			`\banomal(?:y|ies|ous)\b`,
			`\bstd dev\b`,
			`\bstandard deviations?\b`,
			`\bz[- ]?scores?\b`,
			`\b2\s+standard deviations?\b`,
			`\bunusual\b`,
			`\babnorm?al\b`,
		}),
		weak: compileAll([]string{
			`\bextreme\b`,
			`\bspike(?:s)?\b`,
			`\bweird\b`,
		}),
	},
	{
		analysisType: model.AnalysisTopCategories,
		strong: compileAll([]string{
			`\btop\s+\d+\b`,
			`\bbreakdown\b`,
			`\bby category\b`,
			`\bgroup(?:ed)?\s+by\b`,
			`\brank(?:ed|ing)?\b`,
			`\bhighest\b`,
			`\bmost common\b`,
		}),
		weak: compileAll([]string{
			`\btop\b`,
			`\bdistribution\b`,
			`\bcompare\b`,
		}),
	},
	{
		analysisType: model.AnalysisDataQuality,
		strong: compileAll([]string{
			`\bmissing values\b`,
			`\bnulls?\b`,
			`\bduplicates?\b`,
			`\bdata quality\b`,
			`\bcompleteness\b`,
			`\bvalidate\b`,
		}),
		weak: compileAll([]string{
			`\bempty\b`,
			`\bblank\b`,
			`\bquality\b`,
		}),
	},
}

// periodPattern maps a time phrase to its canonical period. Entries are
// checked in order; the first match wins, so longer phrases come before the
// bare forms they contain.
type periodPattern struct {
	re     *regexp.Regexp
	period model.TimePeriod
}

var periodPatterns = []periodPattern{
	{regexp.MustCompile(`(?i)\b(?:last|past)\s+7\s+days\b`), model.PeriodLast7Days},
	{regexp.MustCompile(`(?i)\b(?:last|past)\s+week\b`), model.PeriodLast7Days},
	{regexp.MustCompile(`(?i)\bthis\s+week\b`), model.PeriodLast7Days},
	{regexp.MustCompile(`(?i)\b(?:last|past)\s+30\s+days\b`), model.PeriodLast30Days},
	{regexp.MustCompile(`(?i)\b(?:last|past)\s+month\b`), model.PeriodLast30Days},
	{regexp.MustCompile(`(?i)\bthis\s+month\b`), model.PeriodLast30Days},
	{regexp.MustCompile(`(?i)\b(?:last|past)\s+90\s+days\b`), model.PeriodLast90Days},
	{regexp.MustCompile(`(?i)\b(?:last|past)\s+quarter\b`), model.PeriodLast90Days},
	{regexp.MustCompile(`(?i)\bthis\s+quarter\b`), model.PeriodLast90Days},
	{regexp.MustCompile(`(?i)\bthis\s+year\b`), model.PeriodAllTime},
	{regexp.MustCompile(`(?i)\ball\s+time\b`), model.PeriodAllTime},
	{regexp.MustCompile(`(?i)\bentire\s+dataset\b`), model.PeriodAllTime},
	{regexp.MustCompile(`(?i)\bwhole\s+dataset\b`), model.PeriodAllTime},
}

var reTopN = regexp.MustCompile(`(?i)\btop\s+(\d+)\b`)
