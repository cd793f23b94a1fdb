package analyzer

import "strings"

// Keyword matching is plain text comparison, no AST. Two strategies:
// whole-text substring over whitespace-normalized SQL, and exact
// token/phrase match over the token sequence. Policy order is preserved
// and matches are deduplicated.

// MatchWholeText normalizes all whitespace in sql to single spaces,
// lower-cases it, and tests each keyword as a substring. A keyword can
// match across token boundaries. Keywords are expected trimmed and
// lower-cased already.
func MatchWholeText(sql string, keywords []string) []string {
	if sql == "" || len(keywords) == 0 {
		return nil
	}
	normalized := strings.ToLower(NormalizeWhitespace(sql))
	if normalized == "" {
		return nil
	}
	var matched []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		if strings.Contains(normalized, kw) {
			matched = append(matched, kw)
			seen[kw] = true
		}
	}
	return matched
}

// MatchTokens matches keywords against the token sequence. A single-token
// keyword matches anywhere; a multi-token keyword matches only as a
// contiguous run. No substring matches inside a token.
func MatchTokens(tokens []string, keywords []string) []string {
	if len(tokens) == 0 || len(keywords) == 0 {
		return nil
	}
	var matched []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		kwTokens := Tokenize(kw)
		if len(kwTokens) == 0 {
			continue
		}
		if matchConsecutive(tokens, kwTokens) {
			matched = append(matched, kw)
			seen[kw] = true
		}
	}
	return matched
}

func matchConsecutive(tokens, kwTokens []string) bool {
	if len(kwTokens) > len(tokens) {
		return false
	}
	for i := 0; i <= len(tokens)-len(kwTokens); i++ {
		match := true
		for j := range kwTokens {
			if tokens[i+j] != kwTokens[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
