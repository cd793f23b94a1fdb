// Package executor runs SQL statement batches against a pooled
// connection and materializes results into a language-neutral tabular
// form, including CSV and raw-text file export.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nsxbet/db-mcp/pkg/analyzer"
	"github.com/nsxbet/db-mcp/pkg/types"
)

// statementTimeout bounds every statement; nothing in this core blocks
// indefinitely.
const statementTimeout = 300 * time.Second

// rowSetTypes are the statement heads routed through QueryContext.
// database/sql has no driver-neutral "execute and tell me the result
// kind" call, so routing is decided by the leading keyword.
var rowSetTypes = map[types.StatementType]bool{
	types.StatementSelect: true,
	"SHOW":                true,
	"EXPLAIN":             true,
	"DESCRIBE":            true,
	"DESC":                true,
	"WITH":                true,
	"VALUES":              true,
	"PRAGMA":              true,
}

// Execute splits the SQL into units and runs them in order. The result
// reflects the last unit attempted: earlier units' side effects happen
// but their tabular output is discarded. A per-unit failure halts the
// batch. Elapsed time covers the whole batch.
func Execute(ctx context.Context, db *sql.DB, sqlText string) *types.ExecutionResult {
	start := time.Now()
	result := &types.ExecutionResult{}

	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		result.StatementType = types.StatementUnknown
		result.Warning = "empty SQL"
		result.ExecutionTimeMs = time.Since(start).Milliseconds()
		return result
	}

	var last *types.ExecutionResult
	for _, unit := range SplitStatements(trimmed) {
		last = executeOne(ctx, db, unit)
		if !last.Success {
			break
		}
	}
	if last != nil {
		*result = *last
	} else {
		// Nothing but separators; no database call was made.
		result.Success = true
		result.StatementType = statementTypeOf(trimmed)
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result
}

func executeOne(ctx context.Context, db *sql.DB, unit string) *types.ExecutionResult {
	r := &types.ExecutionResult{StatementType: statementTypeOf(unit)}

	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	if rowSetTypes[r.StatementType] {
		runQuery(ctx, db, unit, r)
	} else {
		runExec(ctx, db, unit, r)
	}
	return r
}

func runQuery(ctx context.Context, db *sql.DB, unit string, r *types.ExecutionResult) {
	rows, err := db.QueryContext(ctx, unit)
	if err != nil {
		r.Warning = err.Error()
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		r.Warning = err.Error()
		return
	}
	r.Columns = cols
	r.Rows = [][]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			r.Warning = err.Error()
			return
		}
		row := make([]any, len(cols))
		for i, v := range values {
			row[i] = materialize(v)
		}
		r.Rows = append(r.Rows, row)
	}
	if err := rows.Err(); err != nil {
		r.Warning = err.Error()
		return
	}
	r.RowsAffected = int64(len(r.Rows))
	r.Success = true
}

func runExec(ctx context.Context, db *sql.DB, unit string, r *types.ExecutionResult) {
	res, err := db.ExecContext(ctx, unit)
	if err != nil {
		r.Warning = err.Error()
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.RowsAffected = n
	}
	r.Success = true
}

// materialize copies driver values into forms that survive result-set
// closure. Large character objects arrive as []byte and are read fully
// into a string, never kept by reference.
func materialize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	default:
		return v
	}
}

func statementTypeOf(unit string) types.StatementType {
	tokens := analyzer.Tokenize(analyzer.RemoveStringLiterals(analyzer.RemoveComments(unit)))
	if len(tokens) == 0 {
		return types.StatementUnknown
	}
	return types.StatementTypeOf(tokens[0])
}

// CellString renders one materialized cell for file export. NULL is the
// empty string.
func CellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
