package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/leave-pass-service/internal/config"
)

var envFile string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "passd",
		Short: "Leave pass lifecycle service",
		Long: `passd issues and tracks leave passes, enforces one open pass per
subject and turns recurring leave windows into passes on a schedule.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				config.LoadDotEnv(envFile)
				return
			}
			config.LoadDotEnv()
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")

	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newActivateCmd(), newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
