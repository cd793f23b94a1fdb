// Package mysql is the MySQL dialect backend. It runs the ANTLR MySQL
// grammar over the statement for precise tokenization and syntax
// checking, and falls back to the default lexical engine whenever the
// parser rejects the input: a failed parse must never make the verdict
// or the preview worse than the default.
package mysql

import (
	"strings"

	"github.com/antlr4-go/antlr/v4"
	parser "github.com/gedhean/mysql-parser"

	"github.com/nsxbet/db-mcp/pkg/analyzer"
	"github.com/nsxbet/db-mcp/pkg/formatter"
	"github.com/nsxbet/db-mcp/pkg/plugin"
	"github.com/nsxbet/db-mcp/pkg/types"
)

func init() {
	plugin.Register("mysql", plugin.Backend{
		NewAnalyzer: func(policy plugin.Policy) plugin.Analyzer {
			return &Analyzer{
				base:    analyzer.New(policy.WholeTextMatch, policy.CommandMatch),
				command: normalizeKeywords(policy.CommandMatch),
			}
		},
		NewFormatter: func() plugin.Formatter {
			return &Formatter{fallback: newMySQLFormatter()}
		},
	})
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Analyzer refines the default verdict with the MySQL lexer: tokens come
// from the grammar's default channel, so comments, string literals and
// backtick quoting are handled exactly as the server would. The verdict
// stays superset-compatible with the default engine.
type Analyzer struct {
	base    *analyzer.Analyzer
	command []string
}

// Analyze produces the verdict. When the lexer rejects the input the
// default engine's verdict is returned unchanged.
func (a *Analyzer) Analyze(sql string) *types.AnalysisResult {
	r := a.base.Analyze(sql)
	tokens, err := lexTokens(sql)
	if err != nil || len(tokens) == 0 {
		return r
	}
	r.Tokens = tokens
	r.StatementType = types.StatementTypeOf(tokens[0])
	r.IsDDL = isDDLToken(tokens[0])

	// Re-run token matching on the refined tokens; whole-text matches
	// are independent of tokenization and are kept.
	seen := make(map[string]bool, len(r.MatchedKeywords))
	for _, kw := range r.MatchedKeywords {
		seen[kw] = true
	}
	for _, kw := range analyzer.MatchTokens(tokens, a.command) {
		if !seen[kw] {
			r.MatchedKeywords = append(r.MatchedKeywords, kw)
			seen[kw] = true
		}
	}
	r.IsDangerous = len(r.MatchedKeywords) > 0
	return r
}

var ddlFirstTokens = map[string]bool{
	"create": true, "drop": true, "alter": true, "truncate": true,
	"rename": true, "comment": true, "grant": true, "revoke": true,
}

func isDDLToken(token string) bool {
	return ddlFirstTokens[token]
}

// lexTokens tokenizes with the MySQL grammar lexer and keeps the
// lower-cased word-like tokens from the default channel. Comments live
// on the hidden channel and never appear; string literals are dropped
// because their text is not word-like.
func lexTokens(statement string) ([]string, error) {
	lexer := parser.NewMySQLLexer(antlr.NewInputStream(statement))
	errorListener := &parseErrorListener{statement: statement}
	lexer.RemoveErrorListeners()
	lexer.AddErrorListener(errorListener)

	stream := antlr.NewCommonTokenStream(lexer, antlr.TokenDefaultChannel)
	stream.Fill()
	if errorListener.err != nil {
		return nil, errorListener.err
	}

	var tokens []string
	for _, tok := range stream.GetAllTokens() {
		if tok.GetChannel() != antlr.TokenDefaultChannel || tok.GetTokenType() == parser.MySQLParserEOF {
			continue
		}
		text := strings.Trim(strings.ToLower(tok.GetText()), "`")
		if isWordToken(text) {
			tokens = append(tokens, text)
		}
	}
	return tokens, nil
}

func isWordToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// parseStatement runs the full grammar and reports the first syntax
// error, if any.
func parseStatement(statement string) error {
	lexer := parser.NewMySQLLexer(antlr.NewInputStream(statement))
	lexerErrorListener := &parseErrorListener{statement: statement}
	lexer.RemoveErrorListeners()
	lexer.AddErrorListener(lexerErrorListener)

	stream := antlr.NewCommonTokenStream(lexer, antlr.TokenDefaultChannel)
	p := parser.NewMySQLParser(stream)
	parserErrorListener := &parseErrorListener{statement: statement}
	p.RemoveErrorListeners()
	p.AddErrorListener(parserErrorListener)
	p.BuildParseTrees = false

	p.Script()

	if lexerErrorListener.err != nil {
		return lexerErrorListener.err
	}
	if parserErrorListener.err != nil {
		return parserErrorListener.err
	}
	return nil
}

// Formatter pretty-prints through the default engine extended with
// MySQL keywords when the statement parses; on parse failure the
// original text is shown verbatim, merely colorized.
type Formatter struct {
	fallback *formatter.Formatter
}

func newMySQLFormatter() *formatter.Formatter {
	return formatter.NewWithKeywords(
		[]string{
			"show", "describe", "explain", "use", "replace", "database", "databases",
			"tables", "engine", "auto_increment", "unsigned", "primary", "key",
			"unique", "foreign", "references", "if", "exists", "ignore", "tinyint",
			"smallint", "mediumint", "bigint", "text", "datetime", "timestamp",
		},
		nil,
	)
}

// Format pretty-prints the SQL. Statements the grammar rejects are
// returned unchanged so the caller always sees the exact text it will
// be asked to approve.
func (f *Formatter) Format(sql string) string {
	if strings.TrimSpace(sql) == "" {
		return ""
	}
	if err := parseStatement(sql); err != nil {
		return sql
	}
	return f.fallback.Format(sql)
}

// FormatHTML highlights the pretty-printed statement, or the original
// layout when the parse failed.
func (f *Formatter) FormatHTML(sql string) string {
	if err := parseStatement(sql); err != nil {
		return f.fallback.FormatHTMLPreserveLayout(sql)
	}
	return f.fallback.FormatHTML(f.fallback.Format(sql))
}

// FormatHTMLPreserveLayout colorizes without re-flowing.
func (f *Formatter) FormatHTMLPreserveLayout(sql string) string {
	return f.fallback.FormatHTMLPreserveLayout(sql)
}
