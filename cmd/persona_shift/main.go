// Package main provides the entry point for the PersonaShift CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "persona_shift",
	Short: "PersonaShift portrait persona generator",
	Long: `PersonaShift turns one portrait and a list of professions into ten professional personas,
each with a biography, skills, and an edited portrait, using Gemini models.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
