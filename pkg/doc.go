// Package pkg groups the db-mcp core: everything needed to mediate SQL
// execution for an automated client across multiple configured
// databases, behind a safety-review policy and an append-only audit
// trail.
//
// # Package Structure
//
//   - types: shared value objects (statement types, analysis verdicts,
//     execution results, connection status)
//   - analyzer: dependency-free review engine (comment/literal blanking,
//     tokenization, keyword matching)
//   - formatter: default SQL pretty-printer and HTML highlighter
//   - plugin: dialect registry binding a db_type to an analyzer and a
//     formatter, with the default engine as fallback
//   - plugin/mysql: grammar-backed MySQL analyzer/formatter
//   - executor: statement splitting, execution, CSV/text file export
//   - pool: per-target connection handles and availability tracking
//   - audit: rotating, fsynced audit log
//   - config: YAML configuration document
//   - logger: slog wrapper writing to stderr
//   - server: MCP stdio protocol layer exposing the tools
//
// # Getting Started
//
// The usual entry point is the serve command, but the core is usable as
// a library. A minimal review-then-execute flow:
//
//	import (
//	    "github.com/nsxbet/db-mcp/pkg/executor"
//	    "github.com/nsxbet/db-mcp/pkg/plugin"
//	    _ "github.com/nsxbet/db-mcp/pkg/plugin/mysql"
//	)
//
//	a := plugin.NewAnalyzer("mysql", plugin.Policy{CommandMatch: keywords})
//	verdict := a.Analyze(sql)
//	if !verdict.IsDangerous {
//	    result := executor.Execute(ctx, db, sql)
//	    // Process result...
//	}
//
// # Review Policy
//
// Two keyword lists select two matching strategies. whole_text_match
// keywords are substring-matched against the whitespace-normalized
// original SQL; command_match keywords are matched on token boundaries
// with comments and string-literal contents blanked out, so "delete"
// inside 'a string' or a comment does not trigger review.
//
// # Thread Safety
//
// Analyzers, formatters and the pool are safe for concurrent use. The
// audit log serializes writers behind a single mutex per instance.
package pkg
