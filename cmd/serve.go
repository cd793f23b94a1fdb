package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	// Database drivers selectable via the connections[].driver config key.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	// Dialect backends register themselves with the plugin registry.
	_ "github.com/nsxbet/db-mcp/pkg/plugin/mysql"

	"github.com/nsxbet/db-mcp/pkg/audit"
	"github.com/nsxbet/db-mcp/pkg/logger"
	"github.com/nsxbet/db-mcp/pkg/pool"
	"github.com/nsxbet/db-mcp/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Start the MCP stdio server: JSON-RPC requests are read from stdin,
responses written to stdout, until EOF. All diagnostics go to stderr.

The server refuses to start when no configured connection can be opened.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("loaded config", "path", cfg.ConfigPath, "connections", len(cfg.Connections))

	p, err := pool.New(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	var auditor *audit.Auditor
	if cfg.Logging.AuditLog {
		if cfg.Logging.LogFile == "" {
			log.Warn("audit_log is enabled but log_file is empty; auditing disabled")
		} else {
			auditor, err = audit.New(cfg.Logging.LogFile)
			if err != nil {
				return err
			}
			log.Info("audit log open", "file", auditor.Path())
		}
	}

	s := server.New(p, auditor, cfg, log, os.Stdin, os.Stdout)
	if err := s.Run(context.Background()); err != nil {
		log.Error("server stopped", logger.Error(err))
		return err
	}
	return nil
}
