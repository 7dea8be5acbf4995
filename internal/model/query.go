package model

// PlannedQuery is one named SQL statement in a query plan. Names are stable
// identifiers the client uses as table titles and for matching executed
// results back to the plan.
type PlannedQuery struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// QueryResult is the executed form of one planned query. RowCount may exceed
// len(Rows) when the executor truncated output.
type QueryResult struct {
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"rowCount"`
}

// ResultsContext carries executed results back to the server so the
// summarizer can produce a final answer.
type ResultsContext struct {
	Results []QueryResult `json:"results"`
}

// Table is one rendered result table inside a final answer.
type Table struct {
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}
