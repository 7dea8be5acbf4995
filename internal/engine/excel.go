package engine

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// excelToCSV streams the first worksheet of an Excel workbook into a
// temporary CSV file that DuckDB's CSV reader can ingest. The returned
// cleanup removes the temp file.
func excelToCSV(path string) (string, func(), error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, fmt.Errorf("workbook %s has no worksheets", path)
	}

	tmp, err := os.CreateTemp("", "nalyze-xlsx-*.csv")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp csv: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	w := csv.NewWriter(tmp)
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("reading worksheet %q: %w", sheets[0], err)
	}
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			_ = rows.Close()
			_ = tmp.Close()
			cleanup()
			return "", nil, fmt.Errorf("reading worksheet %q: %w", sheets[0], err)
		}
		if err := w.Write(record); err != nil {
			_ = rows.Close()
			_ = tmp.Close()
			cleanup()
			return "", nil, fmt.Errorf("writing temp csv: %w", err)
		}
	}
	_ = rows.Close()
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp csv: %w", err)
	}
	return tmp.Name(), cleanup, nil
}
