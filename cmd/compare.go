/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simplyadil/QueryIQ/internal/comparator"
	"github.com/simplyadil/QueryIQ/internal/output"
	"github.com/simplyadil/QueryIQ/internal/plan"
	"github.com/simplyadil/QueryIQ/internal/profile"
)

var compareCmd = &cobra.Command{
	Use:   "compare <before> <after>",
	Short: "Compare two query plans",
	Long: `Compare two PostgreSQL plans and report what changed: cost, timing,
node types, filters and indexes, plus a verdict on whether the rewrite
helped.

Each input is an EXPLAIN (FORMAT JSON) file, a SQL file to explain
against a live database, or "-" to read a plan from stdin (at most one
side). Inputs don't need to be the same type.`,
	Example: `  # Compare two captured plans
  queryiq compare before.json after.json

  # Explain and compare two revisions of a query
  queryiq compare old.sql new.sql --profile prod

  # Mix input types
  queryiq compare prod-plan.json new-query.sql --profile dev

  # Pipe the before plan in
  cat before.json | queryiq compare - after.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		profileName, _ := cmd.Flags().GetString("profile")
		format, _ := cmd.Flags().GetString("format")
		analyze, _ := cmd.Flags().GetBool("analyze")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		if format != "text" && format != "json" {
			return fmt.Errorf("invalid output format %q: must be \"text\" or \"json\"", format)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		connStr, err := profile.ResolveDSN(db, profileName)
		if err != nil {
			return err
		}

		before, err := loadTree(cmd.Context(), args[0], connStr, analyze)
		if err != nil {
			return fmt.Errorf("before plan: %w", err)
		}
		after, err := loadTree(cmd.Context(), args[1], connStr, analyze)
		if err != nil {
			return fmt.Errorf("after plan: %w", err)
		}

		cmp := comparator.Comparator{
			ThresholdPct:      threshold,
			LargeRowThreshold: cfg.Engine.LargeRelationRowThreshold,
		}
		report := cmp.Compare(before, after)

		switch format {
		case "json":
			return output.RenderJSON(os.Stdout, report)
		case "text":
			return output.RenderComparisonText(os.Stdout, report)
		}

		return nil
	},
}

// loadTree turns one compare argument into a parsed plan tree. SQL inputs
// need a connection to run EXPLAIN; anything else is read as EXPLAIN JSON.
func loadTree(ctx context.Context, arg, connStr string, analyze bool) (*plan.Tree, error) {
	var doc []byte
	var err error
	switch {
	case arg == "-":
		doc, err = io.ReadAll(os.Stdin)
	case strings.HasSuffix(arg, ".sql") || strings.HasSuffix(arg, ".txt"):
		var sqlText []byte
		sqlText, err = os.ReadFile(arg)
		if err == nil {
			if connStr == "" {
				return nil, fmt.Errorf("%s requires a database connection to run EXPLAIN", arg)
			}
			doc, err = plan.Explain(ctx, connStr, string(sqlText), analyze)
		}
	default:
		doc, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, err
	}
	return plan.Parse(doc)
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringP("db", "d", "", "PostgreSQL connection string")
	compareCmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	compareCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	compareCmd.Flags().Bool("analyze", false, "Run EXPLAIN ANALYZE (executes the queries)")
	compareCmd.Flags().Float64("threshold", comparator.DefaultThresholdPct, "Percent change below which a node counts as unchanged")
	compareCmd.MarkFlagsMutuallyExclusive("db", "profile")
}
