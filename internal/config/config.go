// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"firestige.xyz/nmbridge/internal/core"
)

// GlobalConfig is the whole bridge configuration.
// Maps to the `nmbridge:` root key in YAML.
type GlobalConfig struct {
	Interface string         `mapstructure:"interface" yaml:"interface"`
	Endpoint  EndpointConfig `mapstructure:"endpoint" yaml:"endpoint"`
	Loop      LoopConfig     `mapstructure:"loop" yaml:"loop"`
	NIC       NICConfig      `mapstructure:"nic" yaml:"nic"`
	Control   ControlConfig  `mapstructure:"control" yaml:"control"`
	Trace     TraceConfig    `mapstructure:"trace" yaml:"trace"`
	Metrics   MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig      `mapstructure:"log" yaml:"log"`
}

// ─── Endpoints ───

// EndpointConfig configures how the wire and host ports are opened.
type EndpointConfig struct {
	Device     string `mapstructure:"device" yaml:"device"`           // netmap control device
	HostSuffix string `mapstructure:"host_suffix" yaml:"host_suffix"` // appended to the interface for the host rings
	NoTxPoll   bool   `mapstructure:"no_tx_poll" yaml:"no_tx_poll"`
}

// ─── Loop ───

// Poll error policies.
const (
	PollErrorSkip   = "skip"
	PollErrorIgnore = "ignore"
)

// LoopConfig configures the poll loop.
type LoopConfig struct {
	PollTimeout     string `mapstructure:"poll_timeout" yaml:"poll_timeout"`           // e.g. "2s"
	PollErrorPolicy string `mapstructure:"poll_error_policy" yaml:"poll_error_policy"` // skip | ignore

	// Timeout is PollTimeout parsed by ValidateAndApplyDefaults.
	Timeout time.Duration `mapstructure:"-" yaml:"-"`
}

// ─── NIC preparation ───

// NICConfig selects interface preparation steps run before the ports open.
type NICConfig struct {
	LinkUp          bool `mapstructure:"link_up" yaml:"link_up"`
	Promisc         bool `mapstructure:"promisc" yaml:"promisc"`
	DisableOffloads bool `mapstructure:"disable_offloads" yaml:"disable_offloads"`
}

// ─── Control ───

// ControlConfig contains local process settings.
type ControlConfig struct {
	PIDFile string `mapstructure:"pid_file" yaml:"pid_file"` // empty = no PID file
}

// ─── Trace ───

// TraceConfig configures the per-slot trace.
type TraceConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"`     // trace / debug / info
	Pattern string `mapstructure:"pattern" yaml:"pattern"` // %time %level %msg %field
	Time    string `mapstructure:"time" yaml:"time"`       // Go time layout
	Output  string `mapstructure:"output" yaml:"output"`   // stdout / file
	Layers  bool   `mapstructure:"layers" yaml:"layers"`   // decode every layer of each frame

	File FileOutputConfig `mapstructure:"file" yaml:"file"`
	Pcap PcapConfig       `mapstructure:"pcap" yaml:"pcap"`
}

// PcapConfig configures the pcap tap of forwarded frames.
type PcapConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	Snaplen int    `mapstructure:"snaplen" yaml:"snaplen"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs" yaml:"outputs"`
}

// LogOutputsConfig contains log output destinations besides stdout.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures a rotating file output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `nmbridge: ...`.
type configRoot struct {
	NMBridge GlobalConfig `mapstructure:"nmbridge"`
}

// Load loads configuration from path. An empty path loads defaults and
// environment overrides only.
// Env vars map through the key replacer, e.g. key "nmbridge.log.level" is
// NMBRIDGE_LOG_LEVEL.
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.NMBridge

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "nmbridge." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Endpoint defaults
	v.SetDefault("nmbridge.interface", "")
	v.SetDefault("nmbridge.endpoint.device", "/dev/netmap")
	v.SetDefault("nmbridge.endpoint.host_suffix", "^")
	v.SetDefault("nmbridge.endpoint.no_tx_poll", false)

	// Loop defaults
	v.SetDefault("nmbridge.loop.poll_timeout", "2s")
	v.SetDefault("nmbridge.loop.poll_error_policy", PollErrorSkip)

	// NIC defaults
	v.SetDefault("nmbridge.nic.link_up", true)
	v.SetDefault("nmbridge.nic.promisc", true)
	v.SetDefault("nmbridge.nic.disable_offloads", true)

	v.SetDefault("nmbridge.control.pid_file", "")

	// Trace defaults
	v.SetDefault("nmbridge.trace.enabled", false)
	v.SetDefault("nmbridge.trace.level", "debug")
	v.SetDefault("nmbridge.trace.pattern", "%time [%level] %msg %field\n")
	v.SetDefault("nmbridge.trace.time", "2006-01-02 15:04:05.000")
	v.SetDefault("nmbridge.trace.output", "stdout")
	v.SetDefault("nmbridge.trace.layers", false)
	v.SetDefault("nmbridge.trace.file.enabled", false)
	v.SetDefault("nmbridge.trace.file.path", "/var/log/nmbridge/trace.log")
	v.SetDefault("nmbridge.trace.file.rotation.max_size_mb", 100)
	v.SetDefault("nmbridge.trace.file.rotation.max_age_days", 7)
	v.SetDefault("nmbridge.trace.file.rotation.max_backups", 5)
	v.SetDefault("nmbridge.trace.file.rotation.compress", true)
	v.SetDefault("nmbridge.trace.pcap.enabled", false)
	v.SetDefault("nmbridge.trace.pcap.path", "/var/lib/nmbridge/bridge.pcap")
	v.SetDefault("nmbridge.trace.pcap.snaplen", 65535)

	// Metrics defaults
	v.SetDefault("nmbridge.metrics.enabled", false)
	v.SetDefault("nmbridge.metrics.listen", ":9091")
	v.SetDefault("nmbridge.metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("nmbridge.log.level", "info")
	v.SetDefault("nmbridge.log.format", "text")
	v.SetDefault("nmbridge.log.outputs.file.enabled", false)
	v.SetDefault("nmbridge.log.outputs.file.path", "/var/log/nmbridge/nmbridge.log")
	v.SetDefault("nmbridge.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("nmbridge.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("nmbridge.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("nmbridge.log.outputs.file.rotation.compress", true)
}

// ValidateAndApplyDefaults validates configuration and fills derived fields.
// The interface name may still be empty; callers that open ports check it.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return invalid("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return invalid("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return invalid("log.outputs.file.path is required when the file output is enabled")
	}

	// ── Endpoints ──
	if cfg.Endpoint.HostSuffix == "" {
		cfg.Endpoint.HostSuffix = "^"
	}
	if cfg.Endpoint.Device == "" {
		cfg.Endpoint.Device = "/dev/netmap"
	}

	// ── Loop ──
	d, err := time.ParseDuration(cfg.Loop.PollTimeout)
	if err != nil {
		return invalid("invalid loop.poll_timeout %q: %v", cfg.Loop.PollTimeout, err)
	}
	if d < time.Millisecond {
		return invalid("loop.poll_timeout must be at least 1ms, got %s", d)
	}
	cfg.Loop.Timeout = d
	switch cfg.Loop.PollErrorPolicy {
	case "":
		cfg.Loop.PollErrorPolicy = PollErrorSkip
	case PollErrorSkip, PollErrorIgnore:
	default:
		return invalid("invalid loop.poll_error_policy: %s (must be skip/ignore)", cfg.Loop.PollErrorPolicy)
	}

	// ── Trace ──
	if cfg.Trace.Enabled {
		switch cfg.Trace.Level {
		case "trace", "debug", "info":
		default:
			return invalid("invalid trace level: %s (must be trace/debug/info)", cfg.Trace.Level)
		}
		switch cfg.Trace.Output {
		case "stdout":
		case "file":
			if cfg.Trace.File.Path == "" {
				return invalid("trace.file.path is required when trace.output=file")
			}
		default:
			return invalid("invalid trace output: %s (must be stdout/file)", cfg.Trace.Output)
		}
	}
	if cfg.Trace.Pcap.Enabled && cfg.Trace.Pcap.Path == "" {
		return invalid("trace.pcap.path is required when trace.pcap.enabled=true")
	}
	if cfg.Trace.Pcap.Snaplen <= 0 {
		cfg.Trace.Pcap.Snaplen = 65535
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return invalid("metrics.listen is required when metrics.enabled=true")
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrConfigInvalid, fmt.Sprintf(format, args...))
}
