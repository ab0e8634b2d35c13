package zeromq

import (
	"fmt"
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/processing"
)

// FrameHandler receives every decoded frame.
type FrameHandler func(topic string, frame processing.Frame)

// FrameSubscriber connects to a frame bus and decodes PoseFrames
type FrameSubscriber struct {
	socket  *zmq4.Socket
	handler FrameHandler
	logger  customlog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}

	received uint64
	failures uint64
}

// NewFrameSubscriber creates a SUB socket filtered on topic; an empty topic
// receives everything.
func NewFrameSubscriber(topic string, handler FrameHandler, logger customlog.Logger) (*FrameSubscriber, error) {
	socket, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, err
	}

	if err := socket.SetSubscribe(topic); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.SetRcvtimeo(200 * time.Millisecond); err != nil {
		socket.Close()
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		socket.Close()
		return nil, err
	}

	return &FrameSubscriber{
		socket:  socket,
		handler: handler,
		logger:  logger,
	}, nil
}

// Start connects to endpoint and begins receiving
func (l *FrameSubscriber) Start(endpoint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}
	if l.done != nil {
		return ErrServiceClosed
	}
	if err := l.socket.Connect(endpoint); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}

	l.running = true
	l.done = make(chan struct{})
	go l.receiveLoop()

	l.logger.Infof("Frame subscriber connected to %s", endpoint)
	return nil
}

// Stop waits for the receive loop and closes the socket
func (l *FrameSubscriber) Stop() {
	l.mu.Lock()
	wasRunning := l.running
	l.running = false
	done := l.done
	l.mu.Unlock()

	if wasRunning {
		<-done
	}
	l.socket.Close()
}

// Counts returns decoded frames and failures so far.
func (l *FrameSubscriber) Counts() (received, failures uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.received, l.failures
}

func (l *FrameSubscriber) isRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *FrameSubscriber) receiveLoop() {
	defer close(l.done)

	for l.isRunning() {
		parts, err := l.socket.RecvMessageBytes(0)
		if err != nil {
			if !isTimeout(err) {
				l.logger.Warnf("Error receiving frame: %v", err)
				time.Sleep(100 * time.Millisecond)
			}
			continue
		}
		if len(parts) != 2 {
			l.logger.Warnf("Dropping message with %d parts", len(parts))
			continue
		}

		frame, err := processing.DecodeFrame(parts[1])
		l.mu.Lock()
		if err != nil {
			l.failures++
		} else {
			l.received++
		}
		l.mu.Unlock()
		if err != nil {
			l.logger.Warnf("Dropping undecodable frame on %s: %v", parts[0], err)
			continue
		}

		l.handler(string(parts[0]), frame)
	}
}
