/*
Copyright © 2026 SIMPLYADIL
*/
package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/simplyadil/QueryIQ/internal/predict"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect prediction model artifacts",
}

var modelLoadCmd = &cobra.Command{
	Use:   "load <artifact>",
	Short: "Validate a model artifact file",
	Long: `Load and validate a model artifact, printing its version and weights.

The serve and collect commands pick up artifact changes on their own;
this command only checks that a file would be accepted.`,
	Example: `  queryiq model load model.json`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := predict.NewRegistry(nil)
		if err := registry.LoadFile(args[0]); err != nil {
			return err
		}
		printArtifact(registry.Current())
		return nil
	},
}

var modelShowCmd = &cobra.Command{
	Use:     "show",
	Short:   "Show the configured model",
	Example: `  queryiq model show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Model.Path == "" {
			fmt.Printf("No model configured. Predictions use the %s estimator.\n", predict.FallbackVersion)
			return nil
		}
		fmt.Printf("Configured artifact: %s\n", cfg.Model.Path)
		registry := predict.NewRegistry(nil)
		if err := registry.LoadFile(cfg.Model.Path); err != nil {
			return err
		}
		printArtifact(registry.Current())
		return nil
	},
}

func printArtifact(a *predict.Artifact) {
	fmt.Printf("  Version:    %s\n", a.Version)
	fmt.Printf("  Confidence: %.2f\n", a.Confidence)
	fmt.Printf("  Intercept:  %.3f\n", a.Intercept)

	names := make([]string, 0, len(a.Weights))
	for name := range a.Weights {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("  Weights (%d):\n", len(names))
	for _, name := range names {
		fmt.Printf("    %-20s %+.4f\n", name, a.Weights[name])
	}
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelLoadCmd)
	modelCmd.AddCommand(modelShowCmd)
}
