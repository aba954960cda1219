// Package config resolves the settings a Conn needs from flags and an
// optional YAML file, in that precedence order (flags win).
//
// Grounded on the teacher's core/main.go loadConfig(), which returned a
// literal Config struct of server defaults; here the same struct shape
// is instead populated from github.com/spf13/pflag flags with an
// optional gopkg.in/yaml.v3 file overlay, matching the CLI stack wired
// in the pack's 0xinfinitykernel-telepresence go.mod.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a single RDT connection plus the
// process-level settings (listen address, peer address, log level).
type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	PeerAddr   string        `yaml:"peer_addr"`
	WSize      uint16        `yaml:"window_size"`
	Timeout    time.Duration `yaml:"timeout"`
	DiscProb   float64       `yaml:"loss_probability"`

	// StrictAdmission selects the `< wSize - 1` admission bound when
	// true, `< wSize` when false. See internal/engine.Config for the
	// full rationale.
	StrictAdmission bool `yaml:"strict_admission"`

	LogLevel string `yaml:"log_level"`

	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the baseline configuration, mirroring the teacher's
// loadConfig() defaults in shape (every field has a sane standalone
// value) even though the field vocabulary here is transport, not game,
// settings.
func Default() Config {
	return Config{
		ListenAddr:      "0.0.0.0:9000",
		WSize:           16,
		Timeout:         500 * time.Millisecond,
		DiscProb:        0,
		StrictAdmission: true,
		LogLevel:        "info",
		MetricsAddr:     "",
	}
}

// RegisterFlags binds cfg's fields to fs, so a caller can parse flags
// directly into cfg. It is split from Default() so cmd/rdt can call
// Default() first, then override with a config file, then apply flags
// last — flags always win.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "local UDP address to bind")
	fs.StringVar(&cfg.PeerAddr, "peer", cfg.PeerAddr, "remote UDP address to send to (learned automatically if empty)")
	fs.Uint16Var(&cfg.WSize, "window", cfg.WSize, "sliding window size")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "retransmission timeout")
	fs.Float64Var(&cfg.DiscProb, "loss", cfg.DiscProb, "probability [0,1) of dropping an outbound packet, for testing")
	fs.BoolVar(&cfg.StrictAdmission, "strict-admission", cfg.StrictAdmission, "use the `< wSize - 1` admission bound instead of `< wSize`")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn, or error")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "address to serve Prometheus metrics on, empty disables")
}

// LoadFile overlays cfg with values from a YAML file at path. Missing
// fields in the file leave cfg's current values untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// Validate reports whether cfg is usable, returning the first problem
// found.
func (c Config) Validate() error {
	if c.WSize == 0 {
		return fmt.Errorf("window size must be > 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DiscProb < 0 || c.DiscProb >= 1 {
		return fmt.Errorf("loss probability must be in [0, 1)")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	return nil
}
