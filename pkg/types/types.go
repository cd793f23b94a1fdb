// Package types contains the value objects shared across the db-mcp core:
// analysis verdicts, execution results and connection status records.
//
// Everything here is a plain struct with JSON tags; the protocol layer
// serializes these directly into tool responses.
package types

import "strings"

// StatementType classifies a SQL statement by its leading keyword.
type StatementType string

// Known statement types. A statement whose first token is none of these
// is reported as the upper-cased token itself (e.g. "CALL", "BEGIN"),
// or StatementUnknown when the statement has no tokens at all.
const (
	StatementSelect   StatementType = "SELECT"
	StatementInsert   StatementType = "INSERT"
	StatementUpdate   StatementType = "UPDATE"
	StatementDelete   StatementType = "DELETE"
	StatementCreate   StatementType = "CREATE"
	StatementDrop     StatementType = "DROP"
	StatementAlter    StatementType = "ALTER"
	StatementTruncate StatementType = "TRUNCATE"
	StatementGrant    StatementType = "GRANT"
	StatementRevoke   StatementType = "REVOKE"
	StatementRename   StatementType = "RENAME"
	StatementComment  StatementType = "COMMENT"
	StatementMerge    StatementType = "MERGE"
	StatementUnknown  StatementType = "UNKNOWN"
)

var firstTokenTypes = map[string]StatementType{
	"select":   StatementSelect,
	"insert":   StatementInsert,
	"update":   StatementUpdate,
	"delete":   StatementDelete,
	"create":   StatementCreate,
	"drop":     StatementDrop,
	"alter":    StatementAlter,
	"truncate": StatementTruncate,
	"grant":    StatementGrant,
	"revoke":   StatementRevoke,
	"rename":   StatementRename,
	"comment":  StatementComment,
	"merge":    StatementMerge,
}

// StatementTypeOf resolves the statement type from the first lower-cased
// token of a statement. Unrecognized tokens are passed through upper-cased.
func StatementTypeOf(firstToken string) StatementType {
	if firstToken == "" {
		return StatementUnknown
	}
	if t, ok := firstTokenTypes[firstToken]; ok {
		return t
	}
	return StatementType(strings.ToUpper(firstToken))
}

// AnalysisResult is the verdict produced by one analyzer call.
// It is created fresh per call and never mutated afterwards.
type AnalysisResult struct {
	// OriginalSQL is the text exactly as submitted.
	OriginalSQL string `json:"original_sql"`

	// NormalizedSQL is the original with comments and string-literal
	// contents blanked to spaces. Character offsets are preserved.
	NormalizedSQL string `json:"normalized_sql"`

	// Tokens is the ordered lower-cased token sequence of NormalizedSQL.
	Tokens []string `json:"tokens"`

	// IsDDL reports whether the first token is a DDL keyword.
	IsDDL bool `json:"is_ddl"`

	// IsMultiStatement reports whether the original SQL contains a
	// semicolon. Syntactic proxy only; not a real split count.
	IsMultiStatement bool `json:"is_multi_statement"`

	// IsDangerous reports whether any policy keyword matched.
	IsDangerous bool `json:"is_dangerous"`

	// StatementType is derived from the first token.
	StatementType StatementType `json:"statement_type"`

	// MatchedKeywords lists the policy keywords that matched, in policy
	// order, deduplicated.
	MatchedKeywords []string `json:"matched_keywords"`
}

// ExecutionResult is the outcome of executing one statement batch.
// When the batch contains several statements it reflects only the last
// one attempted; earlier statements' side effects still occur.
type ExecutionResult struct {
	Columns         []string        `json:"columns,omitempty"`
	Rows            [][]any         `json:"rows,omitempty"`
	RowsAffected    int64           `json:"rows_affected"`
	Success         bool            `json:"success"`
	StatementType   StatementType   `json:"statement_type"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	Warning         string          `json:"warning,omitempty"`
}

// HasRowSet reports whether the result carries tabular output.
func (r *ExecutionResult) HasRowSet() bool {
	return r.Columns != nil && r.Rows != nil
}

// ConnectionStatus is one row of the status-listing operation.
type ConnectionStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	DBType    string `json:"db_type"`
}
