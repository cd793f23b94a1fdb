package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements_Basic(t *testing.T) {
	units := SplitStatements("SELECT 1; SELECT 2;")
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, units)
}

func TestSplitStatements_SemicolonInsideLiteral(t *testing.T) {
	units := SplitStatements("INSERT INTO t VALUES ('a;b'); SELECT 1")
	assert.Equal(t, []string{"INSERT INTO t VALUES ('a;b')", "SELECT 1"}, units)
}

func TestSplitStatements_EscapedQuoteDoesNotToggleState(t *testing.T) {
	// The doubled quote is an escape: the literal is "it's a test; done"
	// and the semicolon inside it must not split.
	units := SplitStatements("SELECT 'it''s a test; done' FROM dual")
	assert.Equal(t, []string{"SELECT 'it''s a test; done' FROM dual"}, units)
}

func TestSplitStatements_EmptyUnitsDropped(t *testing.T) {
	units := SplitStatements(";;  ;SELECT 1;  ;")
	assert.Equal(t, []string{"SELECT 1"}, units)
}

func TestSplitStatements_ProceduralDDLIsOneUnit(t *testing.T) {
	body := "CREATE PROCEDURE upd() BEGIN UPDATE t SET x = 1; UPDATE t SET y = 2; END"
	units := SplitStatements(body)
	assert.Equal(t, []string{body}, units)
}

func TestIsProceduralDDL(t *testing.T) {
	assert.True(t, IsProceduralDDL("CREATE PROCEDURE p() BEGIN END"))
	assert.True(t, IsProceduralDDL("create or replace function f() returns int"))
	assert.True(t, IsProceduralDDL("CREATE PACKAGE pkg AS END"))
	assert.False(t, IsProceduralDDL("CREATE TABLE t (id INT)"))
	// Word boundary: PROCEDURES (as an identifier) is not PROCEDURE.
	assert.False(t, IsProceduralDDL("CREATE TABLE procedures (id INT)"))
	assert.False(t, IsProceduralDDL("DROP PROCEDURE p"))
}
