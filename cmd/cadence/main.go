package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	opts := &appOptions{}

	rootCmd := &cobra.Command{
		Use:           "cadence",
		Short:         "Recurring tasks and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the environment is read")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(watchCmd(opts))
	rootCmd.AddCommand(checkCmd(opts))
	rootCmd.AddCommand(patternCmd(opts))
	rootCmd.AddCommand(remindCmd(opts))
	rootCmd.AddCommand(taskCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cadence: %v\n", err)
		os.Exit(1)
	}
}
