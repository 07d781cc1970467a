// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"firestige.xyz/nmbridge/internal/bridge"
	"firestige.xyz/nmbridge/internal/config"
	"firestige.xyz/nmbridge/internal/daemon"
	"firestige.xyz/nmbridge/internal/log"
	"firestige.xyz/nmbridge/internal/netif"
	"firestige.xyz/nmbridge/internal/netmap"
	"firestige.xyz/nmbridge/internal/poller"
	"firestige.xyz/nmbridge/internal/trace"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configFile  string
	logLevel    string
	trace       bool
	pollTimeout time.Duration
}

// Execute builds the command tree and runs it. main prints the returned error.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "nmbridge [flags] <iface>",
		Short: "nmbridge - bridge an interface's wire rings to its host stack rings",
		Long: `nmbridge opens the netmap rings of a network interface twice: once on the
wire side and once on the host stack side (the interface name plus the host
suffix, "^" by default). It then copies every frame received on one side to
the transmit rings of the other, in both directions, until interrupted.

Examples:
  nmbridge eth1                        # bridge eth1 with defaults
  nmbridge -c /etc/nmbridge.yml eth1   # load settings from a file
  nmbridge --trace eth1                # print every forwarded slot`,
		Version:       "0.1.0",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd, args[0])
			if err != nil {
				return err
			}
			return runBridge(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug/info/warn/error)")
	rootCmd.Flags().BoolVar(&opts.trace, "trace", false, "enable the per-slot trace")
	rootCmd.Flags().DurationVar(&opts.pollTimeout, "poll-timeout", 0, "readiness wait timeout override")

	rootCmd.AddCommand(newValidateCmd(opts))
	rootCmd.AddCommand(newRingsCmd(opts))
	rootCmd.AddCommand(newStopCmd(opts))
	return rootCmd
}

// load reads the config file and applies flag overrides on top of it.
func (o *rootOptions) load(cmd *cobra.Command, iface string) (*config.GlobalConfig, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if iface != "" {
		cfg.Interface = iface
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("trace") {
		cfg.Trace.Enabled = o.trace
	}
	if flags.Changed("poll-timeout") {
		cfg.Loop.PollTimeout = o.pollTimeout.String()
	}
	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func endpointOptions(cfg *config.GlobalConfig) netmap.Options {
	return netmap.Options{
		Device:     cfg.Endpoint.Device,
		HostSuffix: cfg.Endpoint.HostSuffix,
		NoTxPoll:   cfg.Endpoint.NoTxPoll,
	}
}

// openEndpoints opens the wire port and the host port of cfg.Interface.
func openEndpoints(cfg *config.GlobalConfig) (wire, host *netmap.Port, err error) {
	opts := endpointOptions(cfg)
	wire, err = netmap.Open(cfg.Interface, opts)
	if err != nil {
		return nil, nil, err
	}
	host, err = netmap.Open(cfg.Interface+cfg.Endpoint.HostSuffix, opts)
	if err != nil {
		return nil, nil, multierr.Append(err, wire.Close())
	}
	return wire, host, nil
}

func runBridge(ctx context.Context, cfg *config.GlobalConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if err := netif.Prepare(cfg.Interface, netif.Options{
		LinkUp:          cfg.NIC.LinkUp,
		Promisc:         cfg.NIC.Promisc,
		DisableOffloads: cfg.NIC.DisableOffloads,
	}); err != nil {
		return err
	}

	wire, host, err := openEndpoints(cfg)
	if err != nil {
		return err
	}
	for _, p := range []*netmap.Port{wire, host} {
		info := p.Info()
		slog.Info("endpoint registered",
			"name", info.Name,
			"tx_rings", len(info.TxRings),
			"rx_rings", len(info.RxRings),
			"mem_size", info.MemSize,
		)
	}

	obs, closeTrace, err := trace.Open(cfg.Trace)
	if err != nil {
		return multierr.Combine(err, wire.Close(), host.Close())
	}

	d := daemon.New(wire, host, poller.New(), bridge.New(bridge.WithObserver(obs)), daemon.Options{
		Timeout:         cfg.Loop.Timeout,
		PollErrorPolicy: cfg.Loop.PollErrorPolicy,
		PIDFile:         cfg.Control.PIDFile,
		Metrics:         cfg.Metrics,
	})
	d.OnStop(closeTrace)

	if err := d.Start(ctx); err != nil {
		return multierr.Append(err, d.Stop())
	}
	return multierr.Append(d.Run(ctx), d.Stop())
}
