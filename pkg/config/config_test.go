package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/open-teleop/poselink/pkg/rig"
	"github.com/open-teleop/poselink/pkg/session"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadSessionConfig(t *testing.T) {
	tempDir := t.TempDir()

	configContent := `
version: "1.0"
config_id: "studio-a"
lastUpdated: "2024-01-01T00:00:00Z"

handshake:
  name: "studio"
  rig: "MetaHuman"
  mode: "Portrait"
  mirror: true
  camera_fps: 60
  sync_fps: 90
  packet_format: 1
  model:
    step_sensitivity: 0.9
    jump_sensitivity: 0.3

retarget:
  upper_body_only: true

cadence:
  Footstep:
    timeout: 1s
    fade: 500ms
`
	configPath := writeFile(t, tempDir, "session_config.yaml", configContent)

	cfg, err := LoadSessionConfig(configPath)
	if err != nil {
		t.Fatalf("LoadSessionConfig failed: %v", err)
	}

	if cfg.ConfigID != "studio-a" {
		t.Errorf("Expected config_id studio-a, got %s", cfg.ConfigID)
	}
	if cfg.Handshake.Rig != rig.MetaHuman {
		t.Errorf("Expected rig MetaHuman, got %s", cfg.Handshake.Rig)
	}
	if cfg.Handshake.Mode != session.ModePortrait {
		t.Errorf("Expected mode Portrait, got %s", cfg.Handshake.Mode)
	}
	if !cfg.Handshake.Mirror {
		t.Errorf("Expected mirror to be set")
	}
	if cfg.Handshake.SyncFPS != 90 {
		t.Errorf("Expected sync_fps 90, got %d", cfg.Handshake.SyncFPS)
	}
	if cfg.Handshake.Config.StepSensitivity != 0.9 {
		t.Errorf("Expected step sensitivity 0.9, got %v", cfg.Handshake.Config.StepSensitivity)
	}
	// fields the file leaves out keep their defaults
	if cfg.Handshake.Config.ArmSensitivity != 0.5 {
		t.Errorf("Expected default arm sensitivity 0.5, got %v", cfg.Handshake.Config.ArmSensitivity)
	}
	if !cfg.Retarget.UpperBodyOnly {
		t.Errorf("Expected upper_body_only")
	}
	if got := cfg.Cadence["Footstep"].Timeout; got != time.Second {
		t.Errorf("Expected footstep timeout 1s, got %v", got)
	}
	if got := cfg.Cadence["SidestepL"].Timeout; got != 300*time.Millisecond {
		t.Errorf("Expected default sidestep timeout 300ms, got %v", got)
	}
}

func TestSessionConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown rig", "handshake:\n  rig: Robot\n", "unknown rig"},
		{"unknown mode", "handshake:\n  mode: Upside\n", "unknown mode"},
		{"unknown remap", "retarget:\n  remap: Nope\n", "unknown remap table"},
		{"unknown event", "cadence:\n  Cartwheel:\n    timeout: 1s\n", "unknown cadence event"},
		{"missing id", "config_id: \"\"\n", "missing required fields"},
		{"bad yaml", "handshake: [", "error parsing session config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSessionConfig([]byte(tt.content))
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	cfg, err := ParseSessionConfig([]byte("retarget:\n  remap: Unity_to_Mixamo\n"))
	if err != nil {
		t.Fatalf("Expected registered remap to validate, got %v", err)
	}
	if cfg.Retarget.Remap != "Unity_to_Mixamo" {
		t.Errorf("Expected remap Unity_to_Mixamo, got %s", cfg.Retarget.Remap)
	}
}

func TestLoadBootstrapConfig(t *testing.T) {
	tempDir := t.TempDir()

	bootstrapContent := `
logging:
  level: "debug"
  log_path: "/var/log/poselink"
server:
  http_port: 9090
  stream_hz: 60
listener:
  bind_address: "0.0.0.0"
  port: 8080
  read_buffer_bytes: 1048576
  stale_timeout_ms: 5000
  min_app_version: "1.2.5"
zeromq:
  enabled: true
  publish_bind_address: "tcp://*:7777"
data:
  directory: "/data/poselink"
  session_config_file: "my_session.yaml"
processing:
  workers: 3
  queue_size: 128
`
	writeFile(t, tempDir, BootstrapFileName, bootstrapContent)

	bootstrapCfg, err := LoadBootstrapConfig(tempDir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}

	if bootstrapCfg.Logging.Level != "debug" {
		t.Errorf("Expected logging level 'debug', got '%s'", bootstrapCfg.Logging.Level)
	}
	if bootstrapCfg.Server.HTTPPort != 9090 {
		t.Errorf("Expected server http_port 9090, got %d", bootstrapCfg.Server.HTTPPort)
	}
	if bootstrapCfg.Server.StreamHz != 60 {
		t.Errorf("Expected stream_hz 60, got %d", bootstrapCfg.Server.StreamHz)
	}
	if bootstrapCfg.Listener.Port != 8080 {
		t.Errorf("Expected listener port 8080, got %d", bootstrapCfg.Listener.Port)
	}
	if bootstrapCfg.Listener.StaleTimeout() != 5*time.Second {
		t.Errorf("Expected stale timeout 5s, got %v", bootstrapCfg.Listener.StaleTimeout())
	}
	if bootstrapCfg.Listener.MinAppVersion != "1.2.5" {
		t.Errorf("Expected min_app_version 1.2.5, got %s", bootstrapCfg.Listener.MinAppVersion)
	}
	if !bootstrapCfg.ZeroMQ.Enabled || bootstrapCfg.ZeroMQ.PublishBindAddress != "tcp://*:7777" {
		t.Errorf("Unexpected zeromq section: %+v", bootstrapCfg.ZeroMQ)
	}
	if bootstrapCfg.ZeroMQ.Topic != "poselink.frame" {
		t.Errorf("Expected default topic poselink.frame, got %s", bootstrapCfg.ZeroMQ.Topic)
	}
	if bootstrapCfg.Processing.Workers != 3 || bootstrapCfg.Processing.QueueSize != 128 {
		t.Errorf("Unexpected processing section: %+v", bootstrapCfg.Processing)
	}
	if got := bootstrapCfg.SessionConfigPath(); got != filepath.Join("/data/poselink", "my_session.yaml") {
		t.Errorf("Unexpected session config path %s", got)
	}
}

// Test case for missing required fields validation in LoadBootstrapConfig
func TestLoadBootstrapConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "listener port",
			content: `
data:
  directory: "/data"
  session_config_file: "session.yaml"
`,
			field: "listener.port",
		},
		{
			name: "zeromq address when enabled",
			content: `
listener:
  port: 8080
zeromq:
  enabled: true
data:
  directory: "/data"
  session_config_file: "session.yaml"
`,
			field: "zeromq.publish_bind_address",
		},
		{
			name: "session config file",
			content: `
listener:
  port: 8080
data:
  directory: "/data"
`,
			field: "data.session_config_file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeFile(t, tempDir, BootstrapFileName, tt.content)

			_, err := LoadBootstrapConfig(tempDir)
			if err == nil {
				t.Fatalf("Expected error when loading bootstrap config with missing required fields, but got nil")
			}
			expectedErrorSubstr := "missing required field in bootstrap config: " + tt.field
			if !strings.Contains(err.Error(), expectedErrorSubstr) {
				t.Errorf("Expected error message to contain '%s', but got: %v", expectedErrorSubstr, err)
			}
		})
	}
}

func TestApplyEnvFrom(t *testing.T) {
	cfg := &BootstrapConfig{}
	cfg.Listener.Port = 8080
	cfg.Server.HTTPPort = 8081

	err := ApplyEnvFrom(cfg, map[string]string{
		"POSELINK_UDP_PORT":    "9000",
		"POSELINK_LOG_LEVEL":   "warn",
		"POSELINK_ZMQ_ENABLED": "true",
		"POSELINK_ZMQ_ADDRESS": "tcp://*:5556",
	})
	if err != nil {
		t.Fatalf("ApplyEnvFrom failed: %v", err)
	}
	if cfg.Listener.Port != 9000 {
		t.Errorf("Expected UDP port override 9000, got %d", cfg.Listener.Port)
	}
	if cfg.Server.HTTPPort != 8081 {
		t.Errorf("Unset variable should keep http_port 8081, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.Logging.Level)
	}
	if !cfg.ZeroMQ.Enabled || cfg.ZeroMQ.PublishBindAddress != "tcp://*:5556" {
		t.Errorf("Unexpected zeromq override: %+v", cfg.ZeroMQ)
	}

	if err := ApplyEnvFrom(cfg, map[string]string{"POSELINK_UDP_PORT": "not-a-port"}); err == nil {
		t.Errorf("Expected parse error for non-numeric port")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := WriteFileAtomic(path, []byte("a: 1\n")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("a: 2\n")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a: 2\n" {
		t.Errorf("Unexpected content %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected temporary files to be cleaned up, found %d entries", len(entries))
	}
}
