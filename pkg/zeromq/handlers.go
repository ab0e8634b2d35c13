package zeromq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
)

// SessionConfigSource provides the active session config
type SessionConfigSource interface {
	GetCurrentConfig() *config.SessionConfig
}

// PeerDisconnector drops the active peer
type PeerDisconnector interface {
	DisconnectPeer() error
}

// SessionConfigPayload is the wire form of a session config. The handshake is
// carried exactly as it is sent to the app.
type SessionConfigPayload struct {
	*config.SessionConfig
	Handshake json.RawMessage `json:"handshake"`
}

// NewSessionConfigPayload pairs a config with its marshaled handshake.
func NewSessionConfigPayload(cfg *config.SessionConfig) (SessionConfigPayload, error) {
	hs, err := json.Marshal(cfg.Handshake)
	if err != nil {
		return SessionConfigPayload{}, err
	}
	return SessionConfigPayload{SessionConfig: cfg, Handshake: hs}, nil
}

func respond(messageType string, data interface{}) ([]byte, error) {
	responseData, err := json.Marshal(ZeroMQMessage{
		Type:      messageType,
		Timestamp: float64(time.Now().Unix()),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}
	return responseData, nil
}

// ConfigHandler handles SESSION_CONFIG_REQUEST messages
type ConfigHandler struct {
	source SessionConfigSource
	logger customlog.Logger
}

// NewConfigHandler creates a new handler for configuration requests
func NewConfigHandler(source SessionConfigSource, logger customlog.Logger) *ConfigHandler {
	return &ConfigHandler{source: source, logger: logger}
}

// HandleMessage returns the current session config
func (h *ConfigHandler) HandleMessage(data []byte) ([]byte, error) {
	cfg := h.source.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("no session config loaded")
	}
	payload, err := NewSessionConfigPayload(cfg)
	if err != nil {
		return nil, err
	}
	h.logger.Debugf("Sending session config %s", cfg.ConfigID)
	return respond(MsgTypeConfigResponse, payload)
}

// NewStatusHandler answers STATUS_REQUEST with whatever status returns.
func NewStatusHandler(status func() interface{}) MessageHandler {
	return HandlerFunc(func(data []byte) ([]byte, error) {
		return respond(MsgTypeStatusResponse, status())
	})
}

// NewDisconnectHandler answers DISCONNECT_REQUEST by dropping the active peer.
func NewDisconnectHandler(peers PeerDisconnector, logger customlog.Logger) MessageHandler {
	return HandlerFunc(func(data []byte) ([]byte, error) {
		if err := peers.DisconnectPeer(); err != nil {
			return nil, err
		}
		logger.Infof("Peer disconnected by control request")
		return respond(MsgTypeAck, map[string]interface{}{"status": "OK"})
	})
}
