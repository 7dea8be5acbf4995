// Package router classifies a free-text question into an analysis type
// without any external call.
//
// Each analysis type carries an ordered strong and weak pattern list. A
// strong match scores 0.9 plus small bonuses; weak-only matches stay below
// 0.8 so the state machine treats them as unresolved. Matching is O(n*p)
// with a small constant pattern count, so routing never suspends.
package router

import (
	"regexp"
	"strconv"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Confidence bands. At or above Accept the state machine takes the
// classification as-is; between Floor and Accept the turn escalates to the
// intent extractor or a clarification; below Floor no type is reported.
const (
	Accept = 0.8
	Floor  = 0.5
)

// Params holds parameters extracted alongside the classification.
type Params struct {
	TimePeriod model.TimePeriod // empty when the message names no period
	Limit      int              // 0 when no "top N" was found
}

// Decision is the routing verdict for one message.
type Decision struct {
	// Type is empty when no analysis type reached the confidence floor.
	Type       model.AnalysisType
	Confidence float64
	Params     Params
}

// Route scores message against every pattern set and returns the best
// classification. Ties resolve in the fixed preference order of the pattern
// table (row_count, trend, outliers, top_categories, data_quality).
func Route(message string) Decision {
	var best model.AnalysisType
	var bestScore float64

	for _, set := range patternSets {
		score := scoreSet(message, set)
		if score > bestScore {
			best = set.analysisType
			bestScore = score
		}
	}

	d := Decision{Confidence: bestScore, Params: extractParams(message)}
	if bestScore >= Floor {
		d.Type = best
	}
	return d
}

// scoreSet applies the confidence formula: a single strong match maps to
// 0.9, each additional strong match and any weak support add 0.05 (capped at
// 1.0); weak-only matches start at 0.6 and add 0.1 each, capped at 0.79 so
// they can never clear the acceptance band.
func scoreSet(message string, set patternSet) float64 {
	strong := countMatches(message, set.strong)
	weak := countMatches(message, set.weak)

	switch {
	case strong >= 1:
		score := 0.9 + 0.05*float64(strong-1)
		if weak >= 1 {
			score += 0.05
		}
		return min(score, 1.0)
	case weak >= 1:
		return min(0.6+0.1*float64(weak-1), 0.79)
	default:
		return 0
	}
}

func countMatches(message string, patterns []*regexp.Regexp) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(message) {
			n++
		}
	}
	return n
}

func extractParams(message string) Params {
	var p Params
	for _, pp := range periodPatterns {
		if pp.re.MatchString(message) {
			p.TimePeriod = pp.period
			break
		}
	}
	if m := reTopN.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			p.Limit = n
		}
	}
	return p
}
