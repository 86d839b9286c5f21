package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/persona-shift/internal/types"
)

var samplesJSON bool

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Print the sample professions offered for quick selection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if samplesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(types.Samples())
		}
		for _, prof := range types.Samples() {
			if _, err := fmt.Fprintln(out, prof); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	samplesCmd.Flags().BoolVar(&samplesJSON, "json", false, "Print as a JSON array")
	rootCmd.AddCommand(samplesCmd)
}
