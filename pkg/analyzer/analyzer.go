// Package analyzer implements the default SQL review engine: comment and
// string-literal blanking, tokenization, DDL and statement-type
// classification, and policy keyword matching.
//
// This implementation is deliberately free of any external SQL parser so
// it works for every dialect. Richer, dialect-aware engines can replace
// it through the plugin registry behind the same contract; they must
// produce a superset-compatible verdict.
//
//	a := analyzer.New([]string{"drop table"}, nil)
//	result := a.Analyze("DROP TABLE users; SELECT 1")
//	// result.IsDDL == true, result.IsDangerous == true
package analyzer

import (
	"strings"

	"github.com/nsxbet/db-mcp/pkg/types"
)

// ddlKeywords is the fixed set of first tokens that mark a statement DDL.
var ddlKeywords = map[string]bool{
	"create":   true,
	"drop":     true,
	"alter":    true,
	"truncate": true,
	"rename":   true,
	"comment":  true,
	"grant":    true,
	"revoke":   true,
}

// Analyzer is the default review engine. It carries the two policy
// keyword lists: wholeText keywords are substring-matched against the
// whitespace-normalized SQL, command keywords are matched on token
// boundaries. Safe for concurrent use; never mutated after construction.
type Analyzer struct {
	wholeText []string
	command   []string
}

// New builds an analyzer for the given policy lists. Keywords are
// trimmed and lower-cased; empty entries are dropped.
func New(wholeTextKeywords, commandKeywords []string) *Analyzer {
	return &Analyzer{
		wholeText: normalizeKeywords(wholeTextKeywords),
		command:   normalizeKeywords(commandKeywords),
	}
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

// Analyze classifies the SQL and matches it against the policy. The
// result is created fresh per call.
func (a *Analyzer) Analyze(sql string) *types.AnalysisResult {
	r := &types.AnalysisResult{
		OriginalSQL: sql,
	}
	noComments := RemoveComments(sql)
	r.NormalizedSQL = RemoveStringLiterals(noComments)
	r.IsMultiStatement = strings.Contains(sql, ";")
	r.Tokens = Tokenize(r.NormalizedSQL)
	r.IsDDL = isDDL(r.Tokens)
	r.StatementType = statementTypeOf(r.Tokens)

	matched := MatchWholeText(sql, a.wholeText)
	seen := make(map[string]bool, len(matched))
	for _, kw := range matched {
		seen[kw] = true
	}
	for _, kw := range MatchTokens(r.Tokens, a.command) {
		if !seen[kw] {
			matched = append(matched, kw)
			seen[kw] = true
		}
	}
	r.MatchedKeywords = matched
	r.IsDangerous = len(matched) > 0
	return r
}

func isDDL(tokens []string) bool {
	return len(tokens) > 0 && ddlKeywords[tokens[0]]
}

func statementTypeOf(tokens []string) types.StatementType {
	if len(tokens) == 0 {
		return types.StatementUnknown
	}
	return types.StatementTypeOf(tokens[0])
}
