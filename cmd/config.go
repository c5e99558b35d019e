package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configOutput string

// configCmd prints the merged settings after defaults, config file, .env,
// environment and flags have been applied.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := settingsFrom(cmd.Context())
		out := cmd.OutOrStdout()
		switch strings.ToLower(configOutput) {
		case "", "yaml", "yml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(s); err != nil {
				return fmt.Errorf("encode yaml: %w", err)
			}
			return enc.Close()
		case "json":
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		case "toml":
			return toml.NewEncoder(out).Encode(s)
		default:
			return fmt.Errorf("invalid output for config: %s (use yaml|json|toml)", configOutput)
		}
	},
}

func init() { //nolint:gochecknoinits
	configCmd.Flags().StringVarP(&configOutput, "output", "o", "yaml", "output format: yaml|json|toml")
}
