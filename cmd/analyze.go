/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/simplyadil/QueryIQ/internal/engine"
	"github.com/simplyadil/QueryIQ/internal/output"
	"github.com/simplyadil/QueryIQ/internal/plan"
	"github.com/simplyadil/QueryIQ/internal/predict"
	"github.com/simplyadil/QueryIQ/internal/profile"
	"github.com/simplyadil/QueryIQ/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Analyze a query and suggest optimizations",
	Long: `Analyze one SQL query and print ranked optimization suggestions.

The query can be given inline, as a .sql file, or as "-" to read stdin.
With a database connection the query is explained live; otherwise pass a
captured EXPLAIN (FORMAT JSON) document via --plan, or run on the query
text alone for a lexical-only analysis.`,
	Example: `  # Lexical analysis, no database
  queryiq analyze "SELECT * FROM users WHERE age > 25"

  # Explain against a saved profile
  queryiq analyze query.sql --profile prod

  # Analyze a captured plan
  queryiq analyze query.sql --plan plan.json

  # Machine-readable output
  cat query.sql | queryiq analyze - --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _ := cmd.Flags().GetString("db")
		profileName, _ := cmd.Flags().GetString("profile")
		format, _ := cmd.Flags().GetString("format")
		planFile, _ := cmd.Flags().GetString("plan")
		analyze, _ := cmd.Flags().GetBool("analyze")
		modelPath, _ := cmd.Flags().GetString("model")
		persist, _ := cmd.Flags().GetBool("persist")

		if format != "text" && format != "json" {
			return fmt.Errorf("invalid output format %q: must be \"text\" or \"json\"", format)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		connStr, err := profile.ResolveDSN(db, profileName)
		if err != nil {
			return err
		}

		var queryArg string
		if len(args) > 0 {
			queryArg = args[0]
		}

		input, err := plan.Resolve(cmd.Context(), queryArg, planFile, connStr, analyze)
		if err != nil {
			return err
		}

		if modelPath == "" {
			modelPath = cfg.Model.Path
		}
		registry := predict.NewRegistry(logger)
		if modelPath != "" {
			if err := registry.LoadFile(modelPath); err != nil {
				level.Warn(logger).Log("msg", "model not loaded, using fallback", "err", err)
			}
		}

		eng := engine.New(cfg.Engine, registry, logger, nil)
		analysis, err := eng.Analyze("", input.Query, input.Plan, nil)
		if err != nil {
			return err
		}

		if persist {
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := saveAnalysis(st, analysis); err != nil {
				return fmt.Errorf("persist analysis: %w", err)
			}
		}

		switch format {
		case "json":
			return output.RenderJSON(os.Stdout, analysis)
		case "text":
			return output.RenderAnalysisText(os.Stdout, analysis)
		}

		return nil
	},
}

// saveAnalysis persists one ad-hoc analysis the same way the HTTP API and the
// collector do, so the store looks identical no matter which entry point
// filled it.
func saveAnalysis(st *store.DB, analysis *engine.Analysis) error {
	now := time.Now().UTC()
	if err := st.UpsertQuery(&store.QueryRecord{
		ID:          analysis.QueryID,
		Text:        analysis.Query,
		Hash:        store.HashQueryText(analysis.Query),
		CollectedAt: now,
	}); err != nil {
		return err
	}
	_, err := st.SaveAnalysis(&store.AnalysisRecord{
		QueryID:              analysis.QueryID,
		AnalyzedAt:           now,
		Features:             analysis.Vector,
		PlanMetrics:          analysis.PlanMetrics,
		PredictedTimeMs:      analysis.Prediction.PredictedTimeMs,
		PredictionConfidence: analysis.Prediction.Confidence,
		ModelVersion:         analysis.Prediction.ModelVersion,
	}, analysis.Suggestions)
	return err
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("db", "d", "", "PostgreSQL connection string")
	analyzeCmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	analyzeCmd.Flags().String("plan", "", "EXPLAIN (FORMAT JSON) file to analyze instead of running EXPLAIN")
	analyzeCmd.Flags().Bool("analyze", false, "Run EXPLAIN ANALYZE (executes the query)")
	analyzeCmd.Flags().StringP("model", "m", "", "Model artifact to load (overrides config)")
	analyzeCmd.Flags().Bool("persist", false, "Save the analysis into the local store")
	analyzeCmd.MarkFlagsMutuallyExclusive("db", "profile")
}
