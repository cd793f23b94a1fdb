package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveComments_LineComment(t *testing.T) {
	got := RemoveComments("SELECT 1 -- trailing comment")
	assert.Equal(t, "SELECT 1 "+strings.Repeat(" ", len("-- trailing comment")), got)
	assert.Equal(t, len("SELECT 1 -- trailing comment"), len(got), "offsets preserved")
}

func TestRemoveComments_LineCommentKeepsNewline(t *testing.T) {
	got := RemoveComments("SELECT 1 -- c\nFROM t")
	assert.Equal(t, "SELECT 1 "+strings.Repeat(" ", len("-- c"))+"\nFROM t", got)
}

func TestRemoveComments_BlockComment(t *testing.T) {
	got := RemoveComments("SELECT /* hidden */ 1")
	assert.Equal(t, "SELECT "+strings.Repeat(" ", len("/* hidden */"))+" 1", got)
}

func TestRemoveComments_BlockCommentNonGreedy(t *testing.T) {
	got := RemoveComments("SELECT /* a */ 1 /* b */ 2")
	assert.Contains(t, got, "1")
	assert.Contains(t, got, "2")
	assert.NotContains(t, got, "a")
	assert.NotContains(t, got, "b")
}

func TestRemoveComments_BlockCommentKeepsNewlines(t *testing.T) {
	in := "SELECT /* line1\nline2 */ 1"
	got := RemoveComments(in)
	assert.Equal(t, strings.Count(in, "\n"), strings.Count(got, "\n"))
	assert.NotContains(t, got, "line1")
}

func TestRemoveComments_UnterminatedBlock(t *testing.T) {
	got := RemoveComments("SELECT 1 /* never closed")
	assert.Equal(t, "SELECT 1 ", strings.TrimRight(got, " "))
}

func TestRemoveStringLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "SELECT 'abc' FROM t", "SELECT " + strings.Repeat(" ", 5) + " FROM t"},
		{"escaped quote", "SELECT 'it''s' FROM t", "SELECT " + strings.Repeat(" ", 7) + " FROM t"},
		{"unterminated", "SELECT 'open", "SELECT " + strings.Repeat(" ", 5)},
		{"no literal", "SELECT 1", "SELECT 1"},
		{"adjacent literals", "SELECT 'a','b'", "SELECT " + strings.Repeat(" ", 3) + "," + strings.Repeat(" ", 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemoveStringLiterals(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.in), len(got), "offsets preserved")
		})
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"select", "a_1", "from", "t2"},
		Tokenize("SELECT a_1, FROM (t2);"))
	assert.Empty(t, Tokenize(";,()"))
	assert.Empty(t, Tokenize(""))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\t\tb\r\nc  "))
	assert.Equal(t, "", NormalizeWhitespace(" \t\r\n "))
}

func TestNormalizeWhitespace_Idempotent(t *testing.T) {
	inputs := []string{
		"SELECT\t*\nFROM   t",
		"  already  spaced  ",
		"no_change",
		"",
	}
	for _, in := range inputs {
		once := NormalizeWhitespace(in)
		assert.Equal(t, once, NormalizeWhitespace(once), "input %q", in)
	}
}
