package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the bootstrap fields that can be set from the
// environment. Unset variables leave the file value alone.
type envOverrides struct {
	LogLevel   string `env:"POSELINK_LOG_LEVEL"`
	LogPath    string `env:"POSELINK_LOG_PATH"`
	HTTPPort   *int   `env:"POSELINK_HTTP_PORT"`
	UDPPort    *int   `env:"POSELINK_UDP_PORT"`
	BindAddr   string `env:"POSELINK_BIND_ADDRESS"`
	ZMQEnabled *bool  `env:"POSELINK_ZMQ_ENABLED"`
	ZMQAddress string `env:"POSELINK_ZMQ_ADDRESS"`
	DataDir    string `env:"POSELINK_DATA_DIR"`
}

// ApplyEnv overlays POSELINK_* variables from the process environment.
func ApplyEnv(cfg *BootstrapConfig) error {
	return ApplyEnvFrom(cfg, environMap())
}

// ApplyEnvFrom overlays variables from vars instead of the process environment.
func ApplyEnvFrom(cfg *BootstrapConfig, vars map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogPath != "" {
		cfg.Logging.LogPath = o.LogPath
	}
	if o.HTTPPort != nil {
		cfg.Server.HTTPPort = *o.HTTPPort
	}
	if o.UDPPort != nil {
		cfg.Listener.Port = *o.UDPPort
	}
	if o.BindAddr != "" {
		cfg.Listener.BindAddress = o.BindAddr
	}
	if o.ZMQEnabled != nil {
		cfg.ZeroMQ.Enabled = *o.ZMQEnabled
	}
	if o.ZMQAddress != "" {
		cfg.ZeroMQ.PublishBindAddress = o.ZMQAddress
	}
	if o.DataDir != "" {
		cfg.Data.Directory = o.DataDir
	}
	return nil
}

func environMap() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "POSELINK_") {
			vars[k] = v
		}
	}
	return vars
}
