package zeromq

import (
	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
)

// TopicSessionConfig carries session config change notifications.
const TopicSessionConfig = "poselink.session.config"

// ConfigPublisher announces session config changes on the bus
type ConfigPublisher struct {
	service *ZeroMQService
	logger  customlog.Logger
}

// NewConfigPublisher creates a new publisher for configuration updates
func NewConfigPublisher(service *ZeroMQService, logger customlog.Logger) *ConfigPublisher {
	return &ConfigPublisher{service: service, logger: logger}
}

// PublishConfigUpdate publishes the applied configuration
func (p *ConfigPublisher) PublishConfigUpdate(cfg *config.SessionConfig) error {
	p.logger.Infof("Publishing session config update (ID: %s)", cfg.ConfigID)

	payload, err := NewSessionConfigPayload(cfg)
	if err != nil {
		return err
	}
	return p.service.PublishJSON(TopicSessionConfig, MsgTypeConfigUpdated, payload)
}

// RegisterControlHandlers wires the control endpoint and returns the
// publisher for config notifications.
func RegisterControlHandlers(
	service *ZeroMQService,
	source SessionConfigSource,
	peers PeerDisconnector,
	status func() interface{},
	logger customlog.Logger,
) *ConfigPublisher {
	service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(source, logger))
	if peers != nil {
		service.RegisterHandler(MsgTypeDisconnectRequest, NewDisconnectHandler(peers, logger))
	}
	if status != nil {
		service.RegisterHandler(MsgTypeStatusRequest, NewStatusHandler(status))
	}

	logger.Debugf("Registered control handlers and config publisher")
	return NewConfigPublisher(service, logger)
}
