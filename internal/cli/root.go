package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "integra",
	Short: "Scoring and behavior-regulation engine",
	Long: "Integra scores regulated behaviors against decaying weekly quotas, tracks\n" +
		"habit streaks with grace, and runs a daily advisor with human-approved\n" +
		"penances. Single Go binary, one SQLite file.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(habitCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stackCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(approvalsCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(importCmd)
}
