// Package config holds the environment-driven settings of the preload hook.
package config

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
	"k8s.io/klog/v2"
)

type Config struct {
	PlanPath  string `env:"HOTPATCH_PLAN" envDefault:"/etc/hotpatch/plan.yaml"`
	DryRun    bool   `env:"HOTPATCH_DRY_RUN"`
	Disabled  bool   `env:"HOTPATCH_DISABLED"`
	Verbosity int    `env:"HOTPATCH_V" envDefault:"0"`
	// Empty logs to stderr.
	LogFile string `env:"HOTPATCH_LOG_FILE"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Verbosity < 0 {
		return cfg, fmt.Errorf("parse env: HOTPATCH_V must not be negative, got %d", cfg.Verbosity)
	}
	return cfg, nil
}

// ConfigureLogging points klog at the configured destination and verbosity.
// The host process owns the command line, so klog flags are set on a private
// flag set rather than parsed from os.Args.
func (c Config) ConfigureLogging() error {
	fs := flag.NewFlagSet("hotpatch", flag.ContinueOnError)
	klog.InitFlags(fs)
	settings := map[string]string{"v": strconv.Itoa(c.Verbosity)}
	if c.LogFile != "" {
		settings["logtostderr"] = "false"
		settings["alsologtostderr"] = "false"
		settings["log_file"] = c.LogFile
	}
	for name, value := range settings {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("setting klog %v: %w", name, err)
		}
	}
	return nil
}
