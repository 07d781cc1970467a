package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/nmbridge/internal/config"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file and print the effective settings",
		Long: `Load a configuration file, apply defaults and environment overrides,
validate it, and print the effective configuration as YAML.

Examples:
  nmbridge validate -c /etc/nmbridge.yml
  NMBRIDGE_LOOP_POLL_TIMEOUT=500ms nmbridge validate -c nmbridge.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts.configFile, cmd.OutOrStdout())
		},
	}
}

func runValidate(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(map[string]*config.GlobalConfig{"nmbridge": cfg})
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	source := path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(out, "# VALID: %s\n", source)
	_, err = out.Write(data)
	return err
}
