package zeromq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/poselink/pkg/log"
)

// Common errors
var (
	ErrServiceClosed      = errors.New("zeromq service is closed")
	ErrInvalidMessage     = errors.New("invalid message format")
	ErrUnknownMessageType = errors.New("unknown message type")
)

// Message types
const (
	MsgTypeConfigRequest     = "SESSION_CONFIG_REQUEST"
	MsgTypeConfigResponse    = "SESSION_CONFIG_RESPONSE"
	MsgTypeConfigUpdated     = "SESSION_CONFIG_UPDATED"
	MsgTypeStatusRequest     = "STATUS_REQUEST"
	MsgTypeStatusResponse    = "STATUS_RESPONSE"
	MsgTypeDisconnectRequest = "DISCONNECT_REQUEST"
	MsgTypeAck               = "ACK"
	MsgTypeError             = "ERROR"
)

// ZeroMQMessage is the JSON envelope used on the control endpoint and for
// notifications.
type ZeroMQMessage struct {
	Type      string      `json:"type"`
	Timestamp float64     `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error response message
type ErrorResponse struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// MessageHandler defines the interface for handlers that process specific message types
type MessageHandler interface {
	HandleMessage(data []byte) ([]byte, error)
}

// HandlerFunc is a function type that implements MessageHandler
type HandlerFunc func(data []byte) ([]byte, error)

// HandleMessage calls the function
func (f HandlerFunc) HandleMessage(data []byte) ([]byte, error) {
	return f(data)
}

// Config selects the endpoints the service binds.
type Config struct {
	// PublishAddress is where frames and notifications are published.
	PublishAddress string
	// ControlAddress is the request/reply endpoint. Empty disables it.
	ControlAddress string
}

func isTimeout(err error) bool {
	return zmq4.AsErrno(err) == zmq4.Errno(syscall.EAGAIN)
}

// MessageReceiver answers requests on a REP socket
type MessageReceiver struct {
	socket     *zmq4.Socket
	dispatcher *MessageDispatcher
	poller     *zmq4.Poller
	logger     customlog.Logger
	address    string
	running    bool
	started    bool
	mu         sync.Mutex
	wg         *sync.WaitGroup
}

func newMessageReceiver(ctx *zmq4.Context, address string, dispatcher *MessageDispatcher, logger customlog.Logger, wg *sync.WaitGroup) (*MessageReceiver, error) {
	socket, err := ctx.NewSocket(zmq4.REP)
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	// Bounded send/receive so shutdown is never stuck behind a slow client
	const socketTimeout = 1 * time.Second
	if err := socket.SetRcvtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set receive timeout: %w", err)
	}
	if err := socket.SetSndtimeo(socketTimeout); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set send timeout: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	poller := zmq4.NewPoller()
	poller.Add(socket, zmq4.POLLIN)

	endpoint, err := socket.GetLastEndpoint()
	if err != nil {
		endpoint = address
	}
	logger.Infof("MessageReceiver initialized on %s", endpoint)

	return &MessageReceiver{
		socket:     socket,
		dispatcher: dispatcher,
		poller:     poller,
		logger:     logger,
		address:    endpoint,
		wg:         wg,
	}, nil
}

func (r *MessageReceiver) isRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start begins the request loop
func (r *MessageReceiver) Start() {
	r.mu.Lock()
	if r.running || r.started {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.started = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.socket.Close()
		r.logger.Debugf("MessageReceiver started")

		for r.isRunning() {
			// Poll with a timeout so Stop is noticed
			sockets, err := r.poller.Poll(250 * time.Millisecond)
			if err != nil {
				r.logger.Warnf("Error polling socket: %v", err)
				continue
			}
			if len(sockets) == 0 {
				continue
			}

			msg, err := r.socket.RecvBytes(0)
			if err != nil {
				if !isTimeout(err) {
					r.logger.Warnf("Error receiving request: %v", err)
				}
				continue
			}
			r.logger.Debugf("Received request (%d bytes)", len(msg))

			response, err := r.dispatcher.Dispatch(msg)
			if err != nil {
				r.logger.Warnf("Error dispatching request: %v", err)
				response = errorResponse(err)
			}
			if _, err := r.socket.SendBytes(response, 0); err != nil {
				r.logger.Warnf("Error sending response: %v", err)
			}
		}
		r.logger.Debugf("MessageReceiver stopped")
	}()
}

// Stop ends the request loop. The socket is closed by the loop itself.
func (r *MessageReceiver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

// closeUnstarted closes the socket when the loop never ran to own it.
func (r *MessageReceiver) closeUnstarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.started = true
		r.socket.Close()
	}
}

func errorResponse(err error) []byte {
	code := 500
	if errors.Is(err, ErrUnknownMessageType) || errors.Is(err, ErrInvalidMessage) {
		code = 400
	}
	data, _ := json.Marshal(ZeroMQMessage{
		Type:      MsgTypeError,
		Timestamp: float64(time.Now().Unix()),
		Data:      ErrorResponse{Message: err.Error(), Code: code},
	})
	return data
}

// MessageSender publishes topic-prefixed messages on a PUB socket
type MessageSender struct {
	socket  *zmq4.Socket
	logger  customlog.Logger
	address string
	running bool
	mu      sync.Mutex
}

func newMessageSender(ctx *zmq4.Context, address string, logger customlog.Logger) (*MessageSender, error) {
	socket, err := ctx.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to set linger option: %w", err)
	}

	if err := socket.Bind(address); err != nil {
		socket.Close()
		return nil, fmt.Errorf("failed to bind to %s: %w", address, err)
	}

	endpoint, err := socket.GetLastEndpoint()
	if err != nil {
		endpoint = address
	}
	logger.Infof("MessageSender initialized on %s", endpoint)

	return &MessageSender{
		socket:  socket,
		logger:  logger,
		address: endpoint,
		running: true,
	}, nil
}

// PublishMessage sends a message with the given topic
func (s *MessageSender) PublishMessage(topic string, message []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrServiceClosed
	}

	// Topic frame first so subscribers can filter on it
	if _, err := s.socket.Send(topic, zmq4.SNDMORE); err != nil {
		return fmt.Errorf("failed to send topic: %w", err)
	}
	if _, err := s.socket.SendBytes(message, 0); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Close cleans up resources
func (s *MessageSender) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	if s.socket != nil {
		s.socket.Close()
		s.socket = nil
	}
}

// MessageDispatcher routes requests to the handler registered for their type
type MessageDispatcher struct {
	handlers map[string]MessageHandler
	logger   customlog.Logger
	mu       sync.RWMutex
}

// NewMessageDispatcher creates a new message dispatcher
func NewMessageDispatcher(logger customlog.Logger) *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
		logger:   logger,
	}
}

// RegisterHandler adds a handler for a specific message type
func (d *MessageDispatcher) RegisterHandler(messageType string, handler MessageHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[messageType] = handler
	d.logger.Debugf("Registered handler for message type: %s", messageType)
}

// Dispatch parses the JSON envelope and hands the raw request to its handler
func (d *MessageDispatcher) Dispatch(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	d.mu.RLock()
	handler, exists := d.handlers[msg.Type]
	d.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.Type)
	}
	d.logger.Debugf("Dispatching request of type: %s", msg.Type)
	return handler.HandleMessage(data)
}

// ZeroMQService owns the frame bus: a PUB socket for frames and
// notifications and an optional REP socket for control requests.
type ZeroMQService struct {
	ctx        *zmq4.Context
	receiver   *MessageReceiver
	sender     *MessageSender
	dispatcher *MessageDispatcher
	logger     customlog.Logger
	running    bool
	mu         sync.Mutex
	wg         sync.WaitGroup
}

// NewZeroMQService creates the sockets and binds them.
func NewZeroMQService(cfg Config, logger customlog.Logger) (*ZeroMQService, error) {
	if cfg.PublishAddress == "" {
		return nil, fmt.Errorf("zeromq: publish address is required")
	}
	logger = logger.WithField("component", "zeromq")

	ctx, err := zmq4.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create ZMQ context: %w", err)
	}

	s := &ZeroMQService{
		ctx:        ctx,
		dispatcher: NewMessageDispatcher(logger),
		logger:     logger,
	}

	if cfg.ControlAddress != "" {
		s.receiver, err = newMessageReceiver(ctx, cfg.ControlAddress, s.dispatcher, logger, &s.wg)
		if err != nil {
			ctx.Term()
			return nil, err
		}
	}

	s.sender, err = newMessageSender(ctx, cfg.PublishAddress, logger)
	if err != nil {
		if s.receiver != nil {
			s.receiver.closeUnstarted()
		}
		ctx.Term()
		return nil, err
	}

	return s, nil
}

// RegisterHandler adds a handler for a specific message type
func (s *ZeroMQService) RegisterHandler(messageType string, handler MessageHandler) {
	s.dispatcher.RegisterHandler(messageType, handler)
}

// RegisterHandlerFunc adds a handler function for a specific message type
func (s *ZeroMQService) RegisterHandlerFunc(messageType string, handler func([]byte) ([]byte, error)) {
	s.dispatcher.RegisterHandler(messageType, HandlerFunc(handler))
}

// Start begins answering control requests
func (s *ZeroMQService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.ctx == nil {
		return ErrServiceClosed
	}

	s.running = true
	s.logger.Infof("Starting ZeroMQ service")
	if s.receiver != nil {
		s.receiver.Start()
	}
	return nil
}

// Stop closes both sockets and terminates the context
func (s *ZeroMQService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return
	}

	s.logger.Infof("Stopping ZeroMQ service")
	s.running = false

	if s.receiver != nil {
		s.receiver.Stop()
	}
	s.sender.Close()
	s.wg.Wait()

	if s.receiver != nil {
		s.receiver.closeUnstarted()
	}
	s.ctx.Term()
	s.ctx = nil

	s.logger.Infof("ZeroMQ service stopped")
}

// PublishMessage sends a message with the given topic
func (s *ZeroMQService) PublishMessage(topic string, message []byte) error {
	return s.sender.PublishMessage(topic, message)
}

// PublishJSON publishes a JSON-serializable message with the given topic
func (s *ZeroMQService) PublishJSON(topic string, messageType string, data interface{}) error {
	msg := ZeroMQMessage{
		Type:      messageType,
		Timestamp: float64(time.Now().Unix()),
		Data:      data,
	}

	msgData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return s.PublishMessage(topic, msgData)
}

// PublishEndpoint returns the bound publish endpoint, resolving wildcard ports.
func (s *ZeroMQService) PublishEndpoint() string {
	return s.sender.address
}

// ControlEndpoint returns the bound control endpoint, empty when disabled.
func (s *ZeroMQService) ControlEndpoint() string {
	if s.receiver == nil {
		return ""
	}
	return s.receiver.address
}
