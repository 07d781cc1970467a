package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/nmbridge/internal/daemon"
)

func newStopCmd(opts *rootOptions) *cobra.Command {
	var (
		pidFile string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running nmbridge",
		Long: `Send SIGTERM to the nmbridge process recorded in the PID file and wait
for it to exit. The PID file comes from --pid-file or control.pid_file.

Examples:
  nmbridge stop -c /etc/nmbridge.yml
  nmbridge stop --pid-file /run/nmbridge.pid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pidFile == "" {
				cfg, err := opts.load(cmd, "")
				if err != nil {
					return err
				}
				pidFile = cfg.Control.PIDFile
			}
			if pidFile == "" {
				return fmt.Errorf("no PID file configured")
			}
			if err := daemon.Terminate(pidFile, timeout); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "nmbridge stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&pidFile, "pid-file", "p", "", "PID file path")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "how long to wait for exit")
	return cmd
}
