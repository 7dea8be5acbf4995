package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Kal-El-1412/Nalyze-sub001/internal/model"
)

// Introspect builds the catalog for a dataset: column names, logical types,
// nullability, row count, and basic numeric statistics. Ingestion calls this
// once after registration; the planner then treats the result as read-only.
func (e *Engine) Introspect(ctx context.Context, ds *model.Dataset) (*model.Catalog, error) {
	db, err := e.acquire(ctx, ds)
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := db.QueryContext(qctx, "DESCRIBE data")
	if err != nil {
		return nil, &Failure{Kind: KindEngineError, Err: fmt.Errorf("describe: %w", err)}
	}
	defer func() { _ = rows.Close() }()

	cat := &model.Catalog{}
	for rows.Next() {
		var name, typ string
		var nullable, key, dflt, extra sql.NullString
		if err := rows.Scan(&name, &typ, &nullable, &key, &dflt, &extra); err != nil {
			return nil, &Failure{Kind: KindEngineError, Err: fmt.Errorf("describe scan: %w", err)}
		}
		cat.Columns = append(cat.Columns, model.Column{
			Name:     name,
			Type:     logicalType(typ),
			Nullable: !strings.EqualFold(nullable.String, "NO"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &Failure{Kind: KindEngineError, Err: err}
	}

	if err := db.QueryRowContext(qctx, "SELECT COUNT(*) FROM data").Scan(&cat.RowCount); err != nil {
		return nil, &Failure{Kind: KindEngineError, Err: fmt.Errorf("row count: %w", err)}
	}

	for i := range cat.Columns {
		col := &cat.Columns[i]
		if !col.Type.Numeric() {
			continue
		}
		stats, err := e.columnStats(qctx, db, col.Name)
		if err != nil {
			// Stats are best-effort; a failed aggregate must not block
			// ingestion.
			e.logger.Warn("column stats failed", "column", col.Name, "error", err)
			continue
		}
		col.Stats = stats
	}
	return cat, nil
}

func (e *Engine) columnStats(ctx context.Context, db *sql.DB, column string) (*model.ColumnStats, error) {
	q := `"` + strings.ReplaceAll(column, `"`, `""`) + `"`
	query := fmt.Sprintf(
		"SELECT AVG(CAST(%s AS DOUBLE)), STDDEV(CAST(%s AS DOUBLE)), MIN(CAST(%s AS DOUBLE)), MAX(CAST(%s AS DOUBLE)) FROM data WHERE %s IS NOT NULL",
		q, q, q, q, q,
	)
	var mean, stddev, minV, maxV sql.NullFloat64
	if err := db.QueryRowContext(ctx, query).Scan(&mean, &stddev, &minV, &maxV); err != nil {
		return nil, err
	}
	stats := &model.ColumnStats{}
	if mean.Valid {
		stats.Mean = &mean.Float64
	}
	if stddev.Valid {
		stats.StdDev = &stddev.Float64
	}
	if minV.Valid {
		stats.Min = &minV.Float64
	}
	if maxV.Valid {
		stats.Max = &maxV.Float64
	}
	return stats, nil
}

// logicalType maps a DuckDB type name to the catalog's logical types.
func logicalType(duckType string) model.ColumnType {
	t := strings.ToUpper(duckType)
	switch {
	case strings.Contains(t, "TIMESTAMP"):
		return model.TypeTimestamp
	case strings.Contains(t, "DATE"):
		return model.TypeDate
	case strings.Contains(t, "BOOL"):
		return model.TypeBoolean
	case strings.Contains(t, "DECIMAL"), strings.Contains(t, "NUMERIC"):
		return model.TypeDecimal
	case strings.Contains(t, "DOUBLE"), strings.Contains(t, "FLOAT"), strings.Contains(t, "REAL"):
		return model.TypeDouble
	case strings.Contains(t, "INT"):
		return model.TypeInteger
	default:
		return model.TypeText
	}
}
