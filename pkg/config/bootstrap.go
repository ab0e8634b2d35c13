package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// BootstrapFileName is the file LoadBootstrapConfig reads from the config directory.
const BootstrapFileName = "poselink_config.yaml"

// BootstrapConfig holds the initial configuration loaded from poselink_config.yaml
type BootstrapConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Listener   ListenerConfig   `yaml:"listener"`
	ZeroMQ     ZeroMQBootstrap  `yaml:"zeromq"`
	Processing ProcessingConfig `yaml:"processing"`
	Data       DataConfig       `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogPath string `yaml:"log_path,omitempty"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
	// StreamHz is the rate snapshots are pushed to websocket clients.
	StreamHz int `yaml:"stream_hz"`
}

// ListenerConfig holds the UDP listener settings
type ListenerConfig struct {
	BindAddress     string `yaml:"bind_address"`
	Port            int    `yaml:"port"`
	ReadBufferBytes int    `yaml:"read_buffer_bytes"`
	StaleTimeoutMs  int    `yaml:"stale_timeout_ms"`
	TouchQueueSize  int    `yaml:"touch_queue_size"`
	MinAppVersion   string `yaml:"min_app_version"`
	PollIntervalMs  int    `yaml:"poll_interval_ms"`
}

// ZeroMQBootstrap holds the frame bus settings
type ZeroMQBootstrap struct {
	Enabled            bool   `yaml:"enabled"`
	PublishBindAddress string `yaml:"publish_bind_address"`
	// ControlBindAddress is the request/reply endpoint, empty to disable.
	ControlBindAddress string `yaml:"control_bind_address"`
	Topic              string `yaml:"topic"`
}

// ProcessingConfig holds frame encoding worker configuration
type ProcessingConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory             string `yaml:"directory"`
	SessionConfigFilename string `yaml:"session_config_file"`
}

// StaleTimeout returns the staleness threshold, zero when unset.
func (c ListenerConfig) StaleTimeout() time.Duration {
	return time.Duration(c.StaleTimeoutMs) * time.Millisecond
}

// PollInterval returns the receive deadline, zero when unset.
func (c ListenerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// SessionConfigPath joins the data directory and the session config file name.
func (c *BootstrapConfig) SessionConfigPath() string {
	return filepath.Join(c.Data.Directory, c.Data.SessionConfigFilename)
}

func (c *BootstrapConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Server.StreamHz == 0 {
		c.Server.StreamHz = 30
	}
	if c.ZeroMQ.Topic == "" {
		c.ZeroMQ.Topic = "poselink.frame"
	}
	if c.Processing.Workers == 0 {
		c.Processing.Workers = 2
	}
	if c.Processing.QueueSize == 0 {
		c.Processing.QueueSize = 64
	}
}

// Validate checks required fields
func (c *BootstrapConfig) Validate() error {
	if c.Listener.Port == 0 {
		return fmt.Errorf("missing required field in bootstrap config: listener.port")
	}
	if c.Listener.Port < 0 || c.Listener.Port > 65535 {
		return fmt.Errorf("invalid listener.port in bootstrap config: %d", c.Listener.Port)
	}
	if c.ZeroMQ.Enabled && c.ZeroMQ.PublishBindAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
	}
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if c.Data.SessionConfigFilename == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.session_config_file")
	}
	if c.Server.StreamHz < 0 {
		return fmt.Errorf("invalid server.stream_hz in bootstrap config: %d", c.Server.StreamHz)
	}
	return nil
}

// LoadBootstrapConfig loads poselink_config.yaml from configDir, applies
// POSELINK_* environment overrides and validates the result.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}
	bootstrapCfg.applyDefaults()

	if err := ApplyEnv(&bootstrapCfg); err != nil {
		return nil, err
	}
	if err := bootstrapCfg.Validate(); err != nil {
		return nil, err
	}

	return &bootstrapCfg, nil
}
