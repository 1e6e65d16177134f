// Package main provides dictctl, a command-line front end to the data
// dictionary pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dictctl",
	Short: "DataSense data dictionary tools",
	Long:  "dictctl runs the Atlas, Sage and Guardian analysis locally and inspects datasources without starting the API server.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
