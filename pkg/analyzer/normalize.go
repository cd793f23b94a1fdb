package analyzer

import (
	"strings"
	"unicode"
)

// RemoveComments blanks single-line (-- to end of line) and block
// (/* ... */, non-greedy) comments to spaces of equal length, so
// character offsets survive for downstream display. Newlines inside
// block comments are kept.
func RemoveComments(sql string) string {
	b := []rune(sql)
	out := make([]rune, len(b))
	copy(out, b)
	for i := 0; i < len(b); i++ {
		if b[i] == '-' && i+1 < len(b) && b[i+1] == '-' {
			for i < len(b) && b[i] != '\n' && b[i] != '\r' {
				out[i] = ' '
				i++
			}
			continue
		}
		if b[i] == '/' && i+1 < len(b) && b[i+1] == '*' {
			out[i] = ' '
			out[i+1] = ' '
			i += 2
			for i < len(b) {
				if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
					out[i] = ' '
					out[i+1] = ' '
					i++
					break
				}
				if b[i] != '\n' && b[i] != '\r' {
					out[i] = ' '
				}
				i++
			}
		}
	}
	return string(out)
}

// RemoveStringLiterals blanks every single-quoted literal, delimiters
// included, to spaces. A doubled quote ('') inside a literal is an
// escaped quote, not a terminator.
func RemoveStringLiterals(sql string) string {
	b := []rune(sql)
	out := make([]rune, 0, len(b))
	inString := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			if c == '\'' {
				if i+1 < len(b) && b[i+1] == '\'' {
					out = append(out, ' ', ' ')
					i++
					continue
				}
				inString = false
			}
			out = append(out, ' ')
			continue
		}
		if c == '\'' {
			inString = true
			out = append(out, ' ')
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// Tokenize splits comment- and string-free SQL into maximal runs of
// letters, digits and underscore, lower-cased. Every other character is
// a separator and is discarded.
func Tokenize(sql string) []string {
	lower := strings.ToLower(sql)
	var tokens []string
	var cur strings.Builder
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// NormalizeWhitespace collapses every run of space, tab, CR and LF into
// a single space and trims the result. Idempotent.
func NormalizeWhitespace(sql string) string {
	var sb strings.Builder
	sb.Grow(len(sql))
	wasSpace := false
	for _, r := range sql {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !wasSpace {
				sb.WriteRune(' ')
			}
			wasSpace = true
			continue
		}
		sb.WriteRune(r)
		wasSpace = false
	}
	return strings.TrimSpace(sb.String())
}
