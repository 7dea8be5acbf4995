package model

import "time"

// ColumnType is the logical type assigned to a catalog column.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeDouble    ColumnType = "double"
	TypeDecimal   ColumnType = "decimal"
	TypeDate      ColumnType = "date"
	TypeTimestamp ColumnType = "timestamp"
	TypeBoolean   ColumnType = "boolean"
)

// Numeric reports whether the type supports arithmetic aggregation.
func (t ColumnType) Numeric() bool {
	return t == TypeInteger || t == TypeDouble || t == TypeDecimal
}

// Temporal reports whether the type is a date or timestamp.
func (t ColumnType) Temporal() bool {
	return t == TypeDate || t == TypeTimestamp
}

// ColumnStats holds basic numeric statistics captured at ingest time.
// All fields are nil when the column is non-numeric or the stat could not
// be computed.
type ColumnStats struct {
	Mean   *float64 `json:"mean,omitempty"`
	StdDev *float64 `json:"stddev,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// Column describes one column of a registered dataset.
type Column struct {
	Name     string       `json:"name"`
	Type     ColumnType   `json:"type"`
	Nullable bool         `json:"nullable"`
	Stats    *ColumnStats `json:"stats,omitempty"`
}

// Catalog is the schema plus per-column statistics produced by ingestion.
// The planner treats it as read-only.
type Catalog struct {
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"rowCount,omitempty"`
}

// Column returns the catalog entry with the given name, or nil.
func (c *Catalog) Column(name string) *Column {
	for i := range c.Columns {
		if c.Columns[i].Name == name {
			return &c.Columns[i]
		}
	}
	return nil
}

// DatasetStatus tracks how far a dataset has progressed through ingestion.
type DatasetStatus string

const (
	DatasetRegistered DatasetStatus = "registered"
	DatasetIngested   DatasetStatus = "ingested"
)

// Dataset is one registered tabular file.
type Dataset struct {
	ID         string        `json:"datasetId"`
	Name       string        `json:"name"`
	SourceType string        `json:"sourceType"`
	FilePath   string        `json:"filePath"`
	Status     DatasetStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	Catalog    *Catalog      `json:"catalog,omitempty"`
}
