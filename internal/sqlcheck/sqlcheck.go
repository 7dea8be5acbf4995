// Package sqlcheck statically validates candidate SQL before execution.
//
// Validation is purely syntactic: SELECT-only, no restricted keywords, a
// bounded LIMIT, and (under Safe Mode) at least one aggregate call or GROUP
// BY. Semantic safety is handled upstream by the planner's templates and the
// privacy redactor.
package sqlcheck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxRows is the validator's hard row ceiling. Queries with no LIMIT are
// wrapped at this bound; larger limits are rewritten down to it. Callers may
// pass a tighter cap to Validate.
const MaxRows = 10000

var (
	// Restricted verbs, matched case-insensitively on word boundaries.
	// REPLACE also rejects the string function of the same name; acceptable
	// for template-generated SQL, which never uses it.
	reForbidden = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|ATTACH|DETACH|COPY|EXPORT|PRAGMA|REPLACE)\b`)

	// Aggregate function calls accepted under Safe Mode.
	reAggregate = regexp.MustCompile(`(?i)\b(COUNT|SUM|AVG|MIN|MAX|TOTAL|GROUP_CONCAT|STRING_AGG)\s*\(`)

	reGroupBy = regexp.MustCompile(`(?i)\bGROUP\s+BY\b`)
	reLimit   = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)
)

// Rule names the validation rule a query violated.
type Rule string

const (
	RuleNotSelect        Rule = "NOT_SELECT"
	RuleForbiddenKeyword Rule = "FORBIDDEN_KEYWORD"
	RuleSafeMode         Rule = "SAFE_MODE_AGGREGATE_REQUIRED"
)

// Rejection is a typed validation failure. It is returned as a value, never
// panicked; the caller converts it into a user-facing response shape.
type Rejection struct {
	Rule    Rule
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// AsRejection unwraps err into a *Rejection, or nil.
func AsRejection(err error) *Rejection {
	if rej, ok := err.(*Rejection); ok {
		return rej
	}
	return nil
}

// Check applies the rejection rules without touching the query text. The
// planner uses it to vet a plan before returning it to the client; the
// executor applies the LIMIT rewrite separately via Validate, so planned SQL
// reaches the client exactly as the templates emitted it.
func Check(sql string, safeMode bool) error {
	trimmed := strings.TrimSpace(sql)
	if !hasSelectPrefix(trimmed) {
		return &Rejection{
			Rule:    RuleNotSelect,
			Message: "Only SELECT queries are allowed.",
		}
	}

	if m := reForbidden.FindString(trimmed); m != "" {
		return &Rejection{
			Rule:    RuleForbiddenKeyword,
			Message: fmt.Sprintf("Query contains restricted keyword %q.", strings.ToUpper(m)),
		}
	}

	if safeMode && !reAggregate.MatchString(trimmed) && !reGroupBy.MatchString(trimmed) {
		return &Rejection{
			Rule: RuleSafeMode,
			Message: "Safe Mode requires an aggregation query. Use an aggregate function " +
				"(COUNT, SUM, AVG, MIN, MAX, TOTAL, GROUP_CONCAT, STRING_AGG) or a GROUP BY clause.",
		}
	}
	return nil
}

// Validate checks sql against the restricted grammar and returns the query
// with its LIMIT clause normalized to at most maxRows. A maxRows outside
// (0, MaxRows] falls back to MaxRows.
func Validate(sql string, safeMode bool, maxRows int) (string, error) {
	if maxRows <= 0 || maxRows > MaxRows {
		maxRows = MaxRows
	}
	if err := Check(sql, safeMode); err != nil {
		return "", err
	}
	return capLimit(strings.TrimSpace(sql), maxRows), nil
}

func hasSelectPrefix(sql string) bool {
	return len(sql) >= 6 && strings.EqualFold(sql[:6], "SELECT")
}

// capLimit ensures the query carries a LIMIT of at most maxRows. A query
// without any LIMIT is wrapped rather than edited in place, which keeps the
// rewrite correct for arbitrary SELECT shapes (unions, CTE-free subqueries).
func capLimit(sql string, maxRows int) string {
	if !reLimit.MatchString(sql) {
		return fmt.Sprintf("SELECT * FROM (%s) LIMIT %d", sql, maxRows)
	}
	return reLimit.ReplaceAllStringFunc(sql, func(clause string) string {
		digits := reLimit.FindStringSubmatch(clause)[1]
		n, err := strconv.Atoi(digits)
		if err != nil || n > maxRows {
			return fmt.Sprintf("LIMIT %d", maxRows)
		}
		return clause
	})
}
