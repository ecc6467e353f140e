package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/pkg/config"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for the settings file",
	Long: `Generate a JSON schema for settings.yaml, usable for editor
autocompletion and validation.

Examples:
  # Print schema to stdout
  rsctl config schema

  # Save schema to file
  rsctl config schema --file settings.schema.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.Schema()
		if err != nil {
			return err
		}

		if schemaOutput != "" {
			if err := os.WriteFile(schemaOutput, schema, 0644); err != nil {
				return fmt.Errorf("failed to write schema file: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
			return nil
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOutput, "file", "", "Output file (default: stdout)")
}
