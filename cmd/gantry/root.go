package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Gantry is the API service runtime",
	Long:  `Gantry runs the web API together with its session storage, workflow client, and dependency health surface.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; explicit environment always wins.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to the configuration file")
}
