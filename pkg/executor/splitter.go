package executor

import (
	"strings"
	"unicode"
)

// SplitStatements partitions raw SQL into executable units. A semicolon
// is a boundary only outside single-quoted literals; a doubled quote
// ('') inside a literal is an escaped quote and does not toggle state.
// Units are trimmed and empty units are dropped.
//
// Exception: procedural DDL (CREATE ... FUNCTION/PROCEDURE/PACKAGE) is
// returned as one indivisible unit; its body legitimately contains
// semicolons.
func SplitStatements(sql string) []string {
	if IsProceduralDDL(sql) {
		return []string{strings.TrimSpace(sql)}
	}

	var units []string
	var cur strings.Builder
	inString := false
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\'' {
			if inString && i+1 < len(runes) && runes[i+1] == '\'' {
				cur.WriteRune(c)
				cur.WriteRune(runes[i+1])
				i++
				continue
			}
			inString = !inString
			cur.WriteRune(c)
			continue
		}
		if c == ';' && !inString {
			if unit := strings.TrimSpace(cur.String()); unit != "" {
				units = append(units, unit)
			}
			cur.Reset()
			continue
		}
		cur.WriteRune(c)
	}
	if unit := strings.TrimSpace(cur.String()); unit != "" {
		units = append(units, unit)
	}
	return units
}

// IsProceduralDDL reports whether the whole input is a CREATE
// FUNCTION/PROCEDURE/PACKAGE statement that must run as a single unit.
func IsProceduralDDL(sql string) bool {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if !strings.HasPrefix(upper, "CREATE") {
		return false
	}
	return containsWord(upper, "FUNCTION") ||
		containsWord(upper, "PROCEDURE") ||
		containsWord(upper, "PACKAGE")
}

// containsWord reports whether word occurs in s delimited by non-word
// characters on both sides.
func containsWord(s, word string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isWordRune(rune(s[idx-1]))
		afterIdx := idx + len(word)
		after := afterIdx >= len(s) || !isWordRune(rune(s[afterIdx]))
		if before && after {
			return true
		}
		start = idx + len(word)
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
