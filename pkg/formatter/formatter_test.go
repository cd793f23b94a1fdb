package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_UppercasesKeywordsAndBreaksClauses(t *testing.T) {
	f := New()
	got := f.Format("select a, b from t where a = 1 order by b")

	assert.Contains(t, got, "SELECT")
	assert.Contains(t, got, "\nFROM")
	assert.Contains(t, got, "\nWHERE")
	assert.Contains(t, got, "\nORDER BY")
	assert.NotContains(t, got, "select")
}

func TestFormat_CollapsesWhitespace(t *testing.T) {
	f := New()
	got := f.Format("select   a\n\t from    t")
	assert.Equal(t, "SELECT a \nFROM t", got)
}

func TestFormat_EmptyInput(t *testing.T) {
	f := New()
	assert.Equal(t, "", f.Format(""))
	assert.Equal(t, "", f.Format("   \n\t"))
}

func TestFormat_IdentifiersUntouched(t *testing.T) {
	f := New()
	got := f.Format("select MyColumn from MyTable")
	assert.Contains(t, got, "MyColumn")
	assert.Contains(t, got, "MyTable")
}

func TestFormatHTML_Document(t *testing.T) {
	f := New()
	got := f.FormatHTML("SELECT 1")

	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.True(t, strings.HasSuffix(got, "</code></body></html>"))
	assert.Contains(t, got, `<span class="kw">SELECT</span>`)
	assert.Contains(t, got, `<span class="num">1</span>`)
}

func TestFormatHTML_Spans(t *testing.T) {
	f := New()

	got := f.FormatHTML("SELECT 'it''s' -- note")
	assert.Contains(t, got, `<span class="str">`)
	assert.Contains(t, got, `<span class="cm">--&nbsp;note</span>`)

	got = f.FormatHTML(`SELECT "create" FROM t`)
	assert.Contains(t, got, `<span class="id">"create"</span>`)
}

func TestFormatHTML_QuotedIdentifierNotKeyword(t *testing.T) {
	f := New()
	got := f.FormatHTML(`"create"`)
	assert.NotContains(t, got, `<span class="kw">`)
	assert.Contains(t, got, `<span class="id">`)
}

func TestFormatHTML_EscapesMarkup(t *testing.T) {
	f := New()
	got := f.FormatHTML("SELECT a <> b & c")
	assert.Contains(t, got, "&lt;")
	assert.Contains(t, got, "&gt;")
	assert.Contains(t, got, "&amp;")
	assert.NotContains(t, got, " <> ")
}

func TestFormatHTML_Empty(t *testing.T) {
	f := New()
	got := f.FormatHTML("")
	assert.True(t, strings.HasPrefix(got, "<!DOCTYPE html>"))
	assert.True(t, strings.HasSuffix(got, "</code></body></html>"))
}

func TestFormatHTMLPreserveLayout_KeepsLineStructure(t *testing.T) {
	f := New()
	got := f.FormatHTMLPreserveLayout("SELECT 1\nFROM t")
	assert.Contains(t, got, "<br>")
}
