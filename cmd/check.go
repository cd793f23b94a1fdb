package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/nsxbet/db-mcp/pkg/plugin/mysql"

	"github.com/nsxbet/db-mcp/pkg/plugin"
	"github.com/nsxbet/db-mcp/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <sql-file>",
	Short: "Review a SQL file against the configured policy",
	Long: `Run the safety-review engine over a SQL file without executing it.

The review policy (whole_text_match / command_match keyword lists) comes
from the same config.yaml the server uses. The verdict reports statement
type, DDL and multi-statement flags, and every matched keyword.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("db-type", "t", "", "dialect to analyze with (default: the default engine)")
	checkCmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	checkCmd.Flags().Bool("fail-on-danger", false, "exit with non-zero code when the verdict is dangerous")

	_ = viper.BindPFlag("db-type", checkCmd.Flags().Lookup("db-type"))
	_ = viper.BindPFlag("output", checkCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("fail-on-danger", checkCmd.Flags().Lookup("fail-on-danger"))
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := newLogger()

	sqlFile := args[0]
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return errors.Wrapf(err, "failed to read SQL file: %s", sqlFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Debug("loaded review policy",
		"whole_text", len(cfg.Review.WholeTextMatch),
		"command", len(cfg.Review.CommandMatch))

	dialect := viper.GetString("db-type")
	analyzer := plugin.NewAnalyzer(dialect, plugin.Policy{
		WholeTextMatch: cfg.Review.WholeTextMatch,
		CommandMatch:   cfg.Review.CommandMatch,
	})
	result := analyzer.Analyze(string(content))

	switch viper.GetString("output") {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	case "text":
		printVerdict(result, cfg.Review.AlwaysReviewDDL)
	default:
		return errors.Errorf("unsupported output format: %s", viper.GetString("output"))
	}

	if result.IsDangerous && viper.GetBool("fail-on-danger") {
		os.Exit(1)
	}
	return nil
}

func printVerdict(r *types.AnalysisResult, alwaysReviewDDL bool) {
	fmt.Printf("Statement type:  %s\n", r.StatementType)
	fmt.Printf("DDL:             %v\n", r.IsDDL)
	fmt.Printf("Multi-statement: %v\n", r.IsMultiStatement)
	fmt.Printf("Dangerous:       %v\n", r.IsDangerous)
	if len(r.MatchedKeywords) > 0 {
		fmt.Printf("Matched:         %s\n", strings.Join(r.MatchedKeywords, ", "))
	}
	if r.IsDangerous || (r.IsDDL && alwaysReviewDDL) {
		fmt.Println("\nThis statement would require human approval before execution.")
	} else {
		fmt.Println("\nThis statement would execute without review.")
	}
}
