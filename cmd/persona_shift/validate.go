package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/persona-shift/internal/schemas"
	schemafiles "github.com/jonathan/persona-shift/schemas"
)

var validateCommand = &cobra.Command{
	Use:   "validate",
	Short: "Validate a personas.json export against the export schema",
	RunE:  runValidate,
}

var (
	validateFile   string
	validateSchema string
)

func init() {
	validateCommand.Flags().StringVarP(&validateFile, "file", "f", "", "Path to the personas.json export")
	validateCommand.Flags().StringVarP(&validateSchema, "schema", "s", "", "Path to a schema file (defaults to the built-in export schema)")
	_ = validateCommand.MarkFlagRequired("file")
	rootCmd.AddCommand(validateCommand)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	var err error
	if validateSchema != "" {
		err = schemas.ValidateJSON(validateSchema, validateFile)
	} else {
		err = schemas.ValidateFileEmbedded(schemafiles.Personas, validateFile)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", validateFile)
	return err
}
