package executor

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ExecuteToCSVFile executes the SQL and writes the result to path as
// UTF-8 CSV: a header row of column names, then one line per row with
// RFC 4180 quoting. Non-row-set results are written as a single
// "Rows affected: N" line. Returns the number of rows written.
func ExecuteToCSVFile(ctx context.Context, db *sql.DB, sqlText, path string) (int64, error) {
	r := Execute(ctx, db, sqlText)
	if !r.Success {
		return 0, executionError(r.Warning)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create output file: %s", path)
	}
	defer f.Close()

	if !r.HasRowSet() {
		if _, err := fmt.Fprintf(f, "Rows affected: %d\n", r.RowsAffected); err != nil {
			return 0, errors.Wrap(err, "failed to write output file")
		}
		return r.RowsAffected, nil
	}

	w := csv.NewWriter(f)
	if err := w.Write(r.Columns); err != nil {
		return 0, errors.Wrap(err, "failed to write CSV header")
	}
	cells := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, v := range row {
			cells[i] = CellString(v)
		}
		if err := w.Write(cells); err != nil {
			return 0, errors.Wrap(err, "failed to write CSV row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, errors.Wrap(err, "failed to flush CSV output")
	}
	return int64(len(r.Rows)), nil
}

// ExecuteToTextFile executes the SQL and writes the result to path as
// plain UTF-8 text: no header, cells tab-separated, and no newline
// inserted between rows. Only line breaks already present in the cell
// data reach the file, so stored large-text content is reproduced
// verbatim. Returns the number of rows written.
func ExecuteToTextFile(ctx context.Context, db *sql.DB, sqlText, path string) (int64, error) {
	r := Execute(ctx, db, sqlText)
	if !r.Success {
		return 0, executionError(r.Warning)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to create output file: %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if !r.HasRowSet() {
		if _, err := fmt.Fprintf(w, "Rows affected: %d\n", r.RowsAffected); err != nil {
			return 0, errors.Wrap(err, "failed to write output file")
		}
		if err := w.Flush(); err != nil {
			return 0, errors.Wrap(err, "failed to flush output file")
		}
		return r.RowsAffected, nil
	}

	for _, row := range r.Rows {
		for i, v := range row {
			if i > 0 {
				if err := w.WriteByte('\t'); err != nil {
					return 0, errors.Wrap(err, "failed to write output file")
				}
			}
			if _, err := w.WriteString(CellString(v)); err != nil {
				return 0, errors.Wrap(err, "failed to write output file")
			}
		}
	}
	if err := w.Flush(); err != nil {
		return 0, errors.Wrap(err, "failed to flush output file")
	}
	return int64(len(r.Rows)), nil
}

func executionError(warning string) error {
	if warning == "" {
		warning = "execution failed"
	}
	return errors.New(warning)
}
