package server

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/nsxbet/db-mcp/pkg/audit"
	"github.com/nsxbet/db-mcp/pkg/config"
	"github.com/nsxbet/db-mcp/pkg/pool"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := &config.Config{
		Connections: []config.ConnectionEntry{
			{Name: "local", Driver: "sqlite", DBType: "sqlite", URL: "file::memory:?cache=shared", Database: "main"},
		},
		Review: config.ReviewConfig{
			CommandMatch:    []string{"drop table", "truncate"},
			AlwaysReviewDDL: true,
		},
		Logging: config.LoggingConfig{AuditLog: true},
	}

	p, err := pool.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(p.Close)

	auditDir := t.TempDir()
	a, err := audit.New(filepath.Join(auditDir, "audit.log"))
	require.NoError(t, err)

	s := New(p, a, cfg, nil, strings.NewReader(""), &bytes.Buffer{})
	return s, auditDir
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *CallToolResult {
	t.Helper()
	params, err := json.Marshal(CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	res, rpcErr := s.handleCallTool(context.Background(), params)
	require.Nil(t, rpcErr)
	require.NotNil(t, res)
	return res
}

func decodeText(t *testing.T, res *CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, res.Content)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].Text), &out))
	return out
}

func auditTrail(t *testing.T, dir string) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "audit_*.log"))
	require.NoError(t, err)
	var all strings.Builder
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		all.Write(data)
	}
	return all.String()
}

func TestRun_EndToEnd(t *testing.T) {
	s, _ := newTestServer(t)
	var out bytes.Buffer
	s.out = &out
	s.in = strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
			`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n")

	require.NoError(t, s.Run(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "the notification gets no response")

	var init JSONRPCResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &init))
	assert.Nil(t, init.Error)

	var list struct {
		Result ListToolsResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &list))
	names := make([]string, 0, len(list.Result.Tools))
	for _, tool := range list.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_connections", "execute_sql",
		"execute_sql_to_csv_file", "execute_sql_to_text_file", "format_sql",
	}, names)
}

func TestListConnections(t *testing.T) {
	s, _ := newTestServer(t)
	res := callTool(t, s, "list_connections", nil)
	assert.Contains(t, res.Content[0].Text, `"name": "local"`)
	assert.Contains(t, res.Content[0].Text, `"available": true`)
}

func TestExecuteSQL_PlainSelect(t *testing.T) {
	s, dir := newTestServer(t)

	res := callTool(t, s, "execute_sql", map[string]any{"sql": "SELECT 1 AS a"})
	body := decodeText(t, res)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "review_required")

	trail := auditTrail(t, dir)
	assert.Contains(t, trail, "AUDIT_ACTION=execute_sql\n")
	assert.Contains(t, trail, "AUDIT_APPROVED=true\n")
	assert.Contains(t, trail, "AUDIT_CONNECTION=local\n")
}

func TestExecuteSQL_DangerousRequiresApproval(t *testing.T) {
	s, dir := newTestServer(t)

	res := callTool(t, s, "execute_sql", map[string]any{"sql": "DROP TABLE users"})
	body := decodeText(t, res)
	assert.Equal(t, true, body["review_required"])
	assert.Contains(t, body["matched_keywords"], "drop table")
	assert.Contains(t, body["formatted_sql"], "DROP")

	trail := auditTrail(t, dir)
	assert.Contains(t, trail, "AUDIT_APPROVED=false\n")
	assert.Contains(t, trail, "AUDIT_KEYWORDS=drop table\n")
}

func TestExecuteSQL_DDLGatedByPolicy(t *testing.T) {
	s, _ := newTestServer(t)

	// always_review_ddl gates even keyword-clean DDL.
	res := callTool(t, s, "execute_sql", map[string]any{"sql": "CREATE TABLE gated (id INTEGER)"})
	body := decodeText(t, res)
	assert.Equal(t, true, body["review_required"])

	res = callTool(t, s, "execute_sql", map[string]any{
		"sql": "CREATE TABLE gated (id INTEGER)", "approved": true,
	})
	body = decodeText(t, res)
	assert.Equal(t, true, body["success"])
}

func TestExecuteSQL_FailureIsErrorResult(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s, "execute_sql", map[string]any{"sql": "SELECT * FROM no_such_table"})
	assert.True(t, res.IsError)
	body := decodeText(t, res)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["warning"])
}

func TestExecuteSQL_MissingSQL(t *testing.T) {
	s, _ := newTestServer(t)
	params, _ := json.Marshal(CallToolParams{Name: "execute_sql", Arguments: map[string]any{}})
	_, rpcErr := s.handleCallTool(context.Background(), params)
	require.NotNil(t, rpcErr)
	assert.Equal(t, InvalidParams, rpcErr.Code)
}

func TestExecuteSQLToCSVFile(t *testing.T) {
	s, dir := newTestServer(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	res := callTool(t, s, "execute_sql_to_csv_file", map[string]any{
		"sql": "SELECT 1 AS a, 'x' AS b", "file_path": path,
	})
	body := decodeText(t, res)
	assert.Equal(t, float64(1), body["rows_written"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n", string(data))

	assert.Contains(t, auditTrail(t, dir), "AUDIT_OUTPUT_FILE="+path+"\n")
}

func TestExecuteSQLToTextFile(t *testing.T) {
	s, _ := newTestServer(t)
	path := filepath.Join(t.TempDir(), "out.txt")

	res := callTool(t, s, "execute_sql_to_text_file", map[string]any{
		"sql": "SELECT 'a' AS x, 'b' AS y", "file_path": path,
	})
	body := decodeText(t, res)
	assert.Equal(t, float64(1), body["rows_written"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tb", string(data))
}

func TestFormatSQL(t *testing.T) {
	s, _ := newTestServer(t)

	res := callTool(t, s, "format_sql", map[string]any{"sql": "select 1 from t"})
	assert.Contains(t, res.Content[0].Text, "SELECT")

	res = callTool(t, s, "format_sql", map[string]any{"sql": "select 1", "html": true})
	assert.True(t, strings.HasPrefix(res.Content[0].Text, "<!DOCTYPE html>"))
}

func TestUnknownTool(t *testing.T) {
	s, _ := newTestServer(t)
	params, _ := json.Marshal(CallToolParams{Name: "nope"})
	_, rpcErr := s.handleCallTool(context.Background(), params)
	require.NotNil(t, rpcErr)
	assert.Equal(t, MethodNotFound, rpcErr.Code)
}

func TestHandleMessage_ParseError(t *testing.T) {
	s, _ := newTestServer(t)
	resp := s.handleMessage(context.Background(), []byte("{not json"))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ParseError, resp.Error.Code)
}

func TestHandleMessage_WrongVersion(t *testing.T) {
	s, _ := newTestServer(t)
	resp := s.handleMessage(context.Background(), []byte(`{"jsonrpc":"1.0","id":1,"method":"ping"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)
}
