package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/open-teleop/poselink/pkg/cadence"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
	"github.com/open-teleop/poselink/pkg/session"
)

// SessionConfig is the operational configuration that can be edited while
// the service runs: what to ask the app for, how to retarget and how the
// cadence estimators are tuned.
type SessionConfig struct {
	Version     string                    `yaml:"version" json:"version"`
	ConfigID    string                    `yaml:"config_id" json:"config_id"`
	LastUpdated string                    `yaml:"lastUpdated" json:"lastUpdated"`
	Handshake   session.Handshake         `yaml:"handshake" json:"-"`
	Retarget    RetargetConfig            `yaml:"retarget" json:"retarget"`
	Cadence     map[string]cadence.Config `yaml:"cadence" json:"cadence"`
}

// RetargetConfig selects how snapshot rotations are mapped to the target skeleton.
type RetargetConfig struct {
	// Remap names a registered correction table, empty for none.
	Remap         string `yaml:"remap,omitempty" json:"remap,omitempty"`
	UpperBodyOnly bool   `yaml:"upper_body_only" json:"upper_body_only"`
}

// DefaultCadence returns the estimator tuning per event.
func DefaultCadence() map[string]cadence.Config {
	std := cadence.DefaultConfig()
	side := cadence.Config{Timeout: 300 * time.Millisecond, Fade: 100 * time.Millisecond, Window: cadence.DefaultWindow}
	return map[string]cadence.Config{
		pose.Footstep.String():  std,
		pose.SidestepL.String(): side,
		pose.SidestepR.String(): side,
		pose.Jump.String():      std,
		pose.FeetSplit.String(): std,
		pose.ArmPump.String():   std,
		pose.ArmFlex.String():   std,
	}
}

// DefaultSessionConfig is used for anything a session file leaves out.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Version:   "1.0",
		ConfigID:  "default",
		Handshake: session.DefaultHandshake(),
		Cadence:   DefaultCadence(),
	}
}

// Validate checks names against the known rigs, modes, remap tables and events.
func (c *SessionConfig) Validate() error {
	if c.ConfigID == "" || c.Version == "" {
		return fmt.Errorf("validation failed: missing required fields (config_id, version)")
	}
	if err := c.Handshake.Validate(); err != nil {
		return fmt.Errorf("validation failed: handshake: %w", err)
	}
	if c.Retarget.Remap != "" {
		if _, ok := rig.LookupRemap(c.Retarget.Remap); !ok {
			return fmt.Errorf("validation failed: unknown remap table %q", c.Retarget.Remap)
		}
	}
	for name := range c.Cadence {
		if _, ok := pose.ParseEventKind(name); !ok {
			return fmt.Errorf("validation failed: unknown cadence event %q", name)
		}
	}
	return nil
}

// ParseSessionConfig decodes YAML over the defaults and validates the result.
func ParseSessionConfig(data []byte) (*SessionConfig, error) {
	cfg := DefaultSessionConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing session config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSessionConfig loads a session config file.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading session config file '%s': %w", path, err)
	}
	cfg, err := ParseSessionConfig(data)
	if err != nil {
		return nil, fmt.Errorf("session config file '%s': %w", path, err)
	}
	return cfg, nil
}

// WriteFileAtomic replaces path with data through a temporary file in the
// same directory.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
