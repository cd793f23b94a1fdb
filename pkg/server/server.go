// Package server exposes the core over the MCP stdio protocol: JSON-RPC
// 2.0 requests on stdin, one response per line on stdout. Every tool
// call is gated by the review policy and recorded in the audit trail.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/nsxbet/db-mcp/pkg/audit"
	"github.com/nsxbet/db-mcp/pkg/config"
	"github.com/nsxbet/db-mcp/pkg/logger"
	"github.com/nsxbet/db-mcp/pkg/pool"
)

// Server dispatches MCP requests to the pool, executor and auditor.
type Server struct {
	pool            *pool.Pool
	auditor         *audit.Auditor
	log             logger.Interface
	in              io.Reader
	out             io.Writer
	alwaysReviewDDL bool
	consoleLog      bool
	initialized     bool
}

// New wires the protocol layer. auditor may be nil when audit logging
// is disabled in the configuration.
func New(p *pool.Pool, auditor *audit.Auditor, cfg *config.Config, log logger.Interface, in io.Reader, out io.Writer) *Server {
	if log == nil {
		log = logger.New()
	}
	return &Server{
		pool:            p,
		auditor:         auditor,
		log:             log,
		in:              in,
		out:             out,
		alwaysReviewDDL: cfg.Review.AlwaysReviewDDL,
		consoleLog:      cfg.Logging.MCPConsoleLog,
	}
}

// Run reads newline-delimited JSON-RPC messages until EOF.
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.in)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if rest := strings.TrimSpace(line); rest != "" {
					s.respond(s.handleMessage(ctx, []byte(rest)))
				}
				return nil
			}
			return errors.Wrap(err, "failed to read protocol input")
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.respond(s.handleMessage(ctx, []byte(line)))
	}
}

func (s *Server) respond(resp *JSONRPCResponse) {
	if resp == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("failed to marshal response", logger.Error(err))
		return
	}
	fmt.Fprintln(s.out, string(data))
}

func (s *Server) handleMessage(ctx context.Context, data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &Error{Code: ParseError, Message: "Parse error", Data: err.Error()},
		}
	}
	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &Error{Code: InvalidRequest, Message: "Invalid JSON-RPC version"},
		}
	}
	if s.consoleLog {
		s.log.Info("request", "method", req.Method)
	} else {
		s.log.Debug("request", "method", req.Method)
	}
	return s.handleRequest(ctx, &req)
}

func (s *Server) handleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var rpcErr *Error

	switch req.Method {
	case "initialize":
		result, rpcErr = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		// Notification, no response.
		return nil
	case "tools/list":
		result, rpcErr = s.handleListTools()
	case "tools/call":
		result, rpcErr = s.handleCallTool(ctx, req.Params)
	case "ping":
		result = map[string]any{}
	default:
		rpcErr = &Error{Code: MethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}

	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
}
