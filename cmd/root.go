package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/db-mcp/pkg/config"
	"github.com/nsxbet/db-mcp/pkg/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "db-mcp",
	Short: "A safety-reviewed SQL execution server for LLM agents",
	Long: `db-mcp lets an automated client execute SQL against configured
databases over the MCP stdio protocol, gated by a configurable
safety-review policy and recorded in an append-only audit trail.

Connections, review keywords and logging are defined in config.yaml
(or the file named by the DB_MCP_CONFIG environment variable).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or $DB_MCP_CONFIG)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.AutomaticEnv()
}

// loadConfig resolves the configuration document: the --config flag
// first, then pkg/config's env/cwd lookup.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromFile(cfgFile)
	}
	return config.Load()
}

// newLogger builds the process logger at the level selected by flags.
// Defaults to warnings only: stderr is shared with protocol diagnostics.
func newLogger() *logger.Logger {
	level := slog.LevelWarn
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	} else if viper.GetBool("verbose") {
		level = slog.LevelInfo
	}
	return logger.NewWithLevel(level)
}
