package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
)

// ConfigPublisher announces applied session configs.
// This avoids a direct dependency on the ZeroMQ service.
type ConfigPublisher interface {
	PublishConfigUpdate(cfg *config.SessionConfig) error
}

// ConfigApplier is a component that reconfigures itself from a session config.
type ConfigApplier interface {
	ApplySessionConfig(cfg *config.SessionConfig) error
}

// ConfigApplierFunc adapts a function to ConfigApplier.
type ConfigApplierFunc func(cfg *config.SessionConfig) error

// ApplySessionConfig calls f.
func (f ConfigApplierFunc) ApplySessionConfig(cfg *config.SessionConfig) error {
	return f(cfg)
}

// ConfigValidator rejects a config the running process cannot apply.
type ConfigValidator func(cfg *config.SessionConfig) error

// SessionConfigService manages the operational session configuration.
type SessionConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.SessionConfig
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p ConfigPublisher)
	AddApplier(a ConfigApplier)
	AddValidator(v ConfigValidator)
}

// ValidationError marks an update rejected before anything was persisted.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

type sessionConfigService struct {
	path            string
	logger          customlog.Logger
	configPublisher ConfigPublisher
	appliers        []ConfigApplier
	validators      []ConfigValidator
	currentConfig   *config.SessionConfig
	mu              sync.RWMutex
}

// NewSessionConfigService creates the service and loads path. A missing file
// is not an error: the defaults are used until a config is PUT.
func NewSessionConfigService(path string, logger customlog.Logger) (SessionConfigService, error) {
	if path == "" {
		return nil, fmt.Errorf("session configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.Discard()
	}

	service := &sessionConfigService{
		path:   path,
		logger: logger.WithField("component", "session-config"),
	}

	if err := service.LoadConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		defaults := config.DefaultSessionConfig()
		service.currentConfig = &defaults
		service.logger.Warnf("Session config '%s' not found, using defaults", path)
		return service, nil
	}

	service.logger.Infof("SessionConfigService initialized for path: %s", path)
	return service, nil
}

// LoadConfig reads and validates the session config file. On failure the
// current config is kept.
func (s *sessionConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading session configuration from: %s", s.path)
	cfg, err := config.LoadSessionConfig(s.path)
	if err != nil {
		return err
	}
	s.currentConfig = cfg
	s.logger.Infof("Loaded session configuration ID: %s, Version: %s", cfg.ConfigID, cfg.Version)
	return nil
}

// GetCurrentConfig returns the active config. It must be treated as read-only;
// changes go through UpdateConfig.
func (s *sessionConfigService) GetCurrentConfig() *config.SessionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the file as stored, or the active config
// marshaled when no file has been written yet.
func (s *sessionConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.path
	current := s.currentConfig
	s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || current == nil {
		return nil, fmt.Errorf("error reading session config file '%s': %w", path, err)
	}
	return yaml.Marshal(current)
}

// UpdateConfig validates, persists and applies a new config, then publishes
// a notification.
func (s *sessionConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCfg, err := config.ParseSessionConfig(newConfigYAML)
	if err != nil {
		s.logger.Warnf("Rejected session config update: %v", err)
		return &ValidationError{Err: err}
	}
	for _, v := range s.validators {
		if err := v(newCfg); err != nil {
			s.logger.Warnf("Rejected session config update: %v", err)
			return &ValidationError{Err: err}
		}
	}
	if newCfg.LastUpdated == "" {
		newCfg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	}

	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		return err
	}

	oldID := "N/A"
	if s.currentConfig != nil {
		oldID = s.currentConfig.ConfigID
	}
	s.currentConfig = newCfg
	s.logger.Infof("Updated session configuration. ID %s -> %s, Version: %s", oldID, newCfg.ConfigID, newCfg.Version)

	for _, a := range s.appliers {
		if err := a.ApplySessionConfig(newCfg); err != nil {
			s.logger.Errorf("Failed to apply session config %s: %v", newCfg.ConfigID, err)
		}
	}

	if s.configPublisher != nil {
		go func(publisher ConfigPublisher, cfg *config.SessionConfig) {
			if err := publisher.PublishConfigUpdate(cfg); err != nil {
				s.logger.Warnf("Failed to publish session config update: %v", err)
			}
		}(s.configPublisher, newCfg)
	}

	return nil
}

// PersistConfig writes yamlData to the session config path without applying it.
func (s *sessionConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

func (s *sessionConfigService) persistConfigUnlocked(yamlData []byte) error {
	if err := config.WriteFileAtomic(s.path, yamlData); err != nil {
		s.logger.Errorf("Error writing session config file '%s': %v", s.path, err)
		return fmt.Errorf("error writing session config file '%s': %w", s.path, err)
	}
	s.logger.Debugf("Persisted session configuration to %s", s.path)
	return nil
}

// SetPublisher allows injecting the ConfigPublisher after initialization.
func (s *sessionConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
}

// AddApplier registers a component to reconfigure on every update.
func (s *sessionConfigService) AddApplier(a ConfigApplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appliers = append(s.appliers, a)
}

// AddValidator registers an extra check run before an update is persisted.
func (s *sessionConfigService) AddValidator(v ConfigValidator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators = append(s.validators, v)
}
