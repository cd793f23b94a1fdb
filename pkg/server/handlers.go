package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nsxbet/db-mcp/pkg/audit"
	"github.com/nsxbet/db-mcp/pkg/executor"
	"github.com/nsxbet/db-mcp/pkg/logger"
	"github.com/nsxbet/db-mcp/pkg/pool"
)

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{Code: InvalidParams, Message: "Invalid initialize parameters", Data: err.Error()}
		}
	}
	s.initialized = true
	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
		ServerInfo:      ServerInfo{Name: ServerName, Version: ServerVersion},
	}, nil
}

func (s *Server) handleListTools() (*ListToolsResult, *Error) {
	sqlProp := Property{Type: "string", Description: "The SQL to run; multiple statements may be separated by semicolons"}
	connProp := Property{Type: "string", Description: "Name of the configured connection (optional when only one is configured)"}
	approvedProp := Property{Type: "boolean", Description: "Set true after a human has confirmed a statement the review policy flagged"}
	pathProp := Property{Type: "string", Description: "Path of the output file to create"}

	return &ListToolsResult{
		Tools: []Tool{
			{
				Name:        "list_connections",
				Description: "List configured database connections with live availability. Re-checks every connection; run this to restore one that became unavailable.",
				InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}, Required: []string{}},
			},
			{
				Name:        "execute_sql",
				Description: "Execute SQL on a configured connection. Statements matching the review policy require approved=true after human confirmation.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": sqlProp, "connection": connProp, "approved": approvedProp,
					},
					Required: []string{"sql"},
				},
			},
			{
				Name:        "execute_sql_to_csv_file",
				Description: "Execute SQL and write the result to a CSV file (header row, RFC 4180 quoting). Subject to the same review policy as execute_sql.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": sqlProp, "connection": connProp, "approved": approvedProp, "file_path": pathProp,
					},
					Required: []string{"sql", "file_path"},
				},
			},
			{
				Name:        "execute_sql_to_text_file",
				Description: "Execute SQL and write the result to a plain text file, preserving cell content verbatim. Subject to the same review policy as execute_sql.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": sqlProp, "connection": connProp, "approved": approvedProp, "file_path": pathProp,
					},
					Required: []string{"sql", "file_path"},
				},
			},
			{
				Name:        "format_sql",
				Description: "Pretty-print SQL using the connection's dialect formatter. Set html=true for a syntax-highlighted HTML document.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]Property{
						"sql": sqlProp, "connection": connProp,
						"html": {Type: "boolean", Description: "Return a highlighted HTML document instead of plain text"},
					},
					Required: []string{"sql"},
				},
			},
		},
	}, nil
}

func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "Invalid parameters", Data: err.Error()}
	}

	switch callParams.Name {
	case "list_connections":
		return s.listConnections(ctx)
	case "execute_sql":
		return s.executeSQL(ctx, callParams.Arguments, callParams.Name, outputNone)
	case "execute_sql_to_csv_file":
		return s.executeSQL(ctx, callParams.Arguments, callParams.Name, outputCSV)
	case "execute_sql_to_text_file":
		return s.executeSQL(ctx, callParams.Arguments, callParams.Name, outputText)
	case "format_sql":
		return s.formatSQL(callParams.Arguments)
	default:
		return nil, &Error{Code: MethodNotFound, Message: fmt.Sprintf("Unknown tool: %s", callParams.Name)}
	}
}

func (s *Server) listConnections(ctx context.Context) (*CallToolResult, *Error) {
	statuses := s.pool.ListStatus(ctx)
	return jsonResult(statuses)
}

type outputKind int

const (
	outputNone outputKind = iota
	outputCSV
	outputText
)

// executeSQL is the shared path of the three execution tools: analyze,
// gate on the review policy, execute, audit.
func (s *Server) executeSQL(ctx context.Context, args map[string]any, action string, kind outputKind) (*CallToolResult, *Error) {
	sqlText := argString(args, "sql")
	if sqlText == "" {
		return nil, &Error{Code: InvalidParams, Message: "Missing or invalid 'sql' parameter"}
	}
	outputFile := argString(args, "file_path")
	if kind != outputNone && outputFile == "" {
		return nil, &Error{Code: InvalidParams, Message: "Missing or invalid 'file_path' parameter"}
	}
	conn, rpcErr := s.resolveConnection(args)
	if rpcErr != nil {
		return nil, rpcErr
	}

	analysis := s.pool.Analyzer(conn).Analyze(sqlText)
	needsReview := analysis.IsDangerous || (analysis.IsDDL && s.alwaysReviewDDL)
	approved := argBool(args, "approved")
	meta := s.pool.Meta(conn)

	if needsReview && !approved {
		s.audit(audit.Entry{
			SQL:             sqlText,
			MatchedKeywords: analysis.MatchedKeywords,
			Approved:        false,
			Action:          action,
			Connection:      conn,
			Database:        meta.Database,
			Schema:          meta.Schema,
			Driver:          meta.Driver,
			OutputFile:      outputFile,
		})
		refusal := map[string]any{
			"review_required":  true,
			"message":          "This statement matches the safety-review policy and was not executed. Show the formatted SQL to the user; re-run with approved=true after explicit human confirmation.",
			"matched_keywords": analysis.MatchedKeywords,
			"statement_type":   analysis.StatementType,
			"is_ddl":           analysis.IsDDL,
			"formatted_sql":    s.pool.Formatter(conn).Format(sqlText),
		}
		return jsonResult(refusal)
	}

	db, err := s.pool.DB(conn)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	entry := audit.Entry{
		SQL:             sqlText,
		MatchedKeywords: analysis.MatchedKeywords,
		Approved:        !needsReview || approved,
		Action:          action,
		Connection:      conn,
		Database:        meta.Database,
		Schema:          meta.Schema,
		Driver:          meta.Driver,
		OutputFile:      outputFile,
	}

	switch kind {
	case outputCSV, outputText:
		var n int64
		if kind == outputCSV {
			n, err = executor.ExecuteToCSVFile(ctx, db, sqlText, outputFile)
		} else {
			n, err = executor.ExecuteToTextFile(ctx, db, sqlText, outputFile)
		}
		s.audit(entry)
		if err != nil {
			s.handleExecutionError(conn, err)
			return errorResult(err.Error()), nil
		}
		return jsonResult(map[string]any{"rows_written": n, "output_file": outputFile})
	default:
		result := executor.Execute(ctx, db, sqlText)
		s.audit(entry)
		if !result.Success {
			s.handleExecutionError(conn, errors.New(result.Warning))
			res, rpcErr := jsonResult(result)
			if rpcErr != nil {
				return nil, rpcErr
			}
			res.IsError = true
			return res, nil
		}
		return jsonResult(result)
	}
}

// handleExecutionError flips the target to unavailable when the failure
// looks like lost connectivity, so later calls fast-fail.
func (s *Server) handleExecutionError(conn string, err error) {
	if pool.IsConnectionError(err) {
		s.log.Warn("connection-class execution error", "connection", conn, logger.Error(err))
		s.pool.MarkUnavailable(conn)
	}
}

func (s *Server) formatSQL(args map[string]any) (*CallToolResult, *Error) {
	sqlText := argString(args, "sql")
	if sqlText == "" {
		return nil, &Error{Code: InvalidParams, Message: "Missing or invalid 'sql' parameter"}
	}
	conn, rpcErr := s.resolveConnection(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	f := s.pool.Formatter(conn)
	var text string
	if argBool(args, "html") {
		text = f.FormatHTML(sqlText)
	} else {
		text = f.Format(sqlText)
	}
	return &CallToolResult{Content: []Content{{Type: "text", Text: text}}}, nil
}

// resolveConnection picks the target: the explicit argument, or the
// sole configured connection when the argument is omitted.
func (s *Server) resolveConnection(args map[string]any) (string, *Error) {
	if name := argString(args, "connection"); name != "" {
		return name, nil
	}
	names := s.pool.Names()
	if len(names) == 1 {
		return names[0], nil
	}
	return "", &Error{Code: InvalidParams, Message: "Missing 'connection' parameter: more than one connection is configured"}
}

// audit writes the entry best-effort: a trail write failure is logged
// but never fails the operation it records.
func (s *Server) audit(e audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Log(e); err != nil {
		s.log.Warn("audit write failed", logger.Error(err))
	}
}

func jsonResult(v any) (*CallToolResult, *Error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, &Error{Code: InternalError, Message: fmt.Sprintf("Failed to marshal result: %v", err)}
	}
	return &CallToolResult{Content: []Content{{Type: "text", Text: string(data)}}}, nil
}

func errorResult(msg string) *CallToolResult {
	return &CallToolResult{Content: []Content{{Type: "text", Text: msg}}, IsError: true}
}

func argString(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return s
	}
	return ""
}

func argBool(args map[string]any, key string) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return false
}
