// Package formatter renders SQL for human display: a plain-text
// pretty-printer and an HTML syntax highlighter for confirmation UIs.
//
// The default implementation tokenizes structurally and needs no SQL
// parser. Dialect-aware formatters plug in through the plugin registry
// and fall back to this one when a parse fails.
package formatter

import (
	"strings"
	"unicode"
)

const htmlHead = `<!DOCTYPE html><html><head><meta charset="UTF-8"><style>
.sql-wrap { font-family: Consolas, monospace; font-size: 11pt; background: #ffffff; color: #24292e; padding: 12px; white-space: pre-wrap; word-break: break-word; overflow: visible; margin: 0; }
.sql-wrap .kw { color: #0550ae; }
.sql-wrap .str { color: #cf2222; }
.sql-wrap .cm { color: #57606a; }
.sql-wrap .num { color: #116329; }
.sql-wrap .id { color: #953800; }
</style></head><body class="sql-wrap"><code>`

const htmlTail = `</code></body></html>`

// standardKeywords is the generic keyword set; dialect formatters may
// extend it.
var standardKeywords = newSet(
	"select", "from", "where", "and", "or", "not", "insert", "into", "values", "update", "set",
	"delete", "create", "drop", "alter", "table", "add", "modify", "column",
	"index", "view", "join", "left", "right", "inner", "outer", "on", "group", "order",
	"by", "having", "limit", "offset", "as", "asc", "desc", "null", "truncate", "grant",
	"revoke", "rename", "comment",
	"number", "varchar", "varchar2", "char", "date", "clob", "blob", "int", "integer", "float", "decimal",
)

// standardClauseStart are the keywords that begin a new indented line in
// the pretty-printer.
var standardClauseStart = newSet(
	"from", "where", "and", "or", "join", "left", "right", "inner", "outer",
	"group", "order", "having", "limit", "offset", "set", "into", "values",
)

func newSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Formatter is the default, parser-free SQL formatter and highlighter.
// Zero-value construction is not supported; use New or NewWithKeywords.
type Formatter struct {
	keywords    map[string]bool
	clauseStart map[string]bool
}

// New creates a formatter with the generic keyword set.
func New() *Formatter {
	return &Formatter{keywords: standardKeywords, clauseStart: standardClauseStart}
}

// NewWithKeywords creates a formatter with extra dialect keywords merged
// into the generic sets.
func NewWithKeywords(extraKeywords, extraClauseStart []string) *Formatter {
	kw := make(map[string]bool, len(standardKeywords)+len(extraKeywords))
	for w := range standardKeywords {
		kw[w] = true
	}
	for _, w := range extraKeywords {
		kw[strings.ToLower(w)] = true
	}
	cs := make(map[string]bool, len(standardClauseStart)+len(extraClauseStart))
	for w := range standardClauseStart {
		cs[w] = true
	}
	for _, w := range extraClauseStart {
		cs[strings.ToLower(w)] = true
	}
	return &Formatter{keywords: kw, clauseStart: cs}
}

// Format pretty-prints SQL: whitespace collapsed, keywords upper-cased,
// clause-starting keywords on a new indented line.
func (f *Formatter) Format(sql string) string {
	if strings.TrimSpace(sql) == "" {
		return ""
	}
	parts := tokenizeForFormat(sql)
	var b strings.Builder
	for i, p := range parts {
		lower := strings.ToLower(p)
		if i > 0 {
			b.WriteByte(' ')
		}
		if f.keywords[lower] {
			if f.clauseStart[lower] && b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.ToUpper(p))
		} else {
			b.WriteString(p)
		}
	}
	return strings.TrimSpace(b.String())
}

func tokenizeForFormat(sql string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range sql {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		case isSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isSymbol(r rune) bool {
	switch r {
	case ',', '(', ')', ';', '.', '=', '*', '\'', '"':
		return true
	}
	return false
}

// FormatHTML renders the SQL as a standalone HTML document with
// class-based spans for keywords, strings, comments, numbers and quoted
// identifiers. Layout is kept as-is; only colors are added.
func (f *Formatter) FormatHTML(sql string) string {
	if sql == "" {
		return htmlHead + htmlTail
	}
	sql = strings.ReplaceAll(sql, "\r\n", "\n")
	sql = strings.ReplaceAll(sql, "\r", "\n")
	s := []rune(sql)
	var out strings.Builder
	out.WriteString(htmlHead)
	i := 0
	for i < len(s) {
		switch {
		// Double-quoted identifier: content is never a keyword.
		case s[i] == '"':
			start := i
			i++
			for i < len(s) {
				if s[i] == '"' {
					i++
					if i < len(s) && s[i] == '"' {
						i++
						continue
					}
					break
				}
				i++
			}
			appendSpan(&out, "id", string(s[start:i]))
		// Single-quoted literal, '' is an escaped quote.
		case s[i] == '\'':
			start := i
			i++
			for i < len(s) {
				if s[i] == '\'' {
					i++
					if i < len(s) && s[i] == '\'' {
						i++
						continue
					}
					break
				}
				i++
			}
			appendSpan(&out, "str", string(s[start:i]))
		// Line comment.
		case s[i] == '-' && i+1 < len(s) && s[i+1] == '-':
			start := i
			for i < len(s) && s[i] != '\n' {
				i++
			}
			appendSpan(&out, "cm", string(s[start:i]))
		// Block comment.
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '*':
			start := i
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			if i+1 < len(s) {
				i += 2
			}
			appendSpan(&out, "cm", string(s[start:i]))
		// Identifier or number run.
		case unicode.IsLetter(s[i]) || unicode.IsDigit(s[i]) || s[i] == '_':
			start := i
			for i < len(s) && (unicode.IsLetter(s[i]) || unicode.IsDigit(s[i]) || s[i] == '_') {
				i++
			}
			seg := string(s[start:i])
			switch {
			case isAllDigits(seg):
				appendSpan(&out, "num", seg)
			case f.keywords[strings.ToLower(seg)]:
				appendSpan(&out, "kw", seg)
			default:
				out.WriteString(escapeHTML(seg))
			}
		default:
			out.WriteString(escapeHTML(string(s[i])))
			i++
		}
	}
	out.WriteString(htmlTail)
	return out.String()
}

// FormatHTMLPreserveLayout highlights without re-flowing layout. The
// default highlighter never re-flows, so this is FormatHTML; dialect
// formatters that pretty-print before highlighting override the
// distinction.
func (f *Formatter) FormatHTMLPreserveLayout(sql string) string {
	return f.FormatHTML(sql)
}

func appendSpan(out *strings.Builder, class, text string) {
	out.WriteString(`<span class="`)
	out.WriteString(class)
	out.WriteString(`">`)
	out.WriteString(escapeHTML(text))
	out.WriteString(`</span>`)
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\n", "<br>")
	s = strings.ReplaceAll(s, " ", "&nbsp;")
	return s
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
