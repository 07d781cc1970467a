package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"firestige.xyz/nmbridge/internal/netmap"
)

func newRingsCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "rings <iface>",
		Short: "Print the ring geometry of both endpoints of an interface",
		Long: `Register the wire and host endpoints of an interface, print their rings
(slot count, buffer size, head, cur and tail) and release them again.

Examples:
  nmbridge rings eth1
  nmbridge rings -o json eth1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd, args[0])
			if err != nil {
				return err
			}
			wire, host, err := openEndpoints(cfg)
			if err != nil {
				return err
			}
			infos := []netmap.Info{wire.Info(), host.Info()}
			return multierr.Combine(
				printInfos(cmd.OutOrStdout(), format, infos),
				wire.Close(),
				host.Close(),
			)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format (yaml/json)")
	return cmd
}

func printInfos(out io.Writer, format string, infos []netmap.Info) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	default:
		return fmt.Errorf("unknown output format %q (must be yaml/json)", format)
	}
}
