package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sosflow/sosflow/pkg/logger"
)

var (
	verboseFlag   bool
	assumeYesFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "sosflow",
	Short: "sosflow runs script-of-scripts workflows.",
	Long: `sosflow is a command-line tool that executes workflow scripts made of
interdependent steps, scheduling them as a DAG and skipping steps whose
inputs haven't changed since the last run.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logOpts := logger.DefaultOptions()
		logOpts.ColorConsole = true
		if verboseFlag {
			logOpts.ConsoleLevel = logger.DebugLevel
		}
		logger.Init(logOpts)
		return nil
	},
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYesFlag, "yes", "y", false, "assume yes to all prompts and run non-interactively")

	rootCmd.AddCommand(runCmd)
}
