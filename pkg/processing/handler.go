package processing

import (
	"sync"

	customlog "github.com/open-teleop/poselink/pkg/log"
)

// MessagePublisher defines the interface for publishing encoded frames
type MessagePublisher interface {
	PublishMessage(topic string, data []byte) error
}

// LoggingResultHandler logs encoding results and publishes frames in
// sequence order. Workers can finish out of order; a frame older than the
// last one published is dropped.
type LoggingResultHandler struct {
	logger    customlog.Logger
	publisher MessagePublisher

	mu        sync.Mutex
	last      uint64
	published uint64
	skipped   uint64
}

// NewLoggingResultHandler creates a new logging result handler
func NewLoggingResultHandler(logger customlog.Logger, publisher MessagePublisher) *LoggingResultHandler {
	return &LoggingResultHandler{
		logger:    logger,
		publisher: publisher,
	}
}

// HandleResult handles an encoded frame
func (h *LoggingResultHandler) HandleResult(result *ProcessResult) {
	if result.Error != nil {
		h.logger.Errorf("Error encoding frame %d for topic '%s': %v", result.Sequence, result.Topic, result.Error)
		return
	}
	if len(result.Data) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.published > 0 && result.Sequence <= h.last {
		h.skipped++
		h.logger.Debugf("Skipping out-of-order frame %d (last published %d)", result.Sequence, h.last)
		return
	}

	if h.publisher == nil {
		h.last = result.Sequence
		h.published++
		return
	}
	if err := h.publisher.PublishMessage(result.Topic, result.Data); err != nil {
		h.logger.Errorf("Failed to publish frame %d for topic '%s': %v", result.Sequence, result.Topic, err)
		return
	}
	h.last = result.Sequence
	h.published++
	h.logger.Debugf("Published frame %d for topic '%s' (%d bytes)", result.Sequence, result.Topic, len(result.Data))
}

// Counts returns how many frames were published and skipped as stale.
func (h *LoggingResultHandler) Counts() (published, skipped uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.published, h.skipped
}

// CreateHandlerFunc creates a ResultHandler function for the ProcessingPool
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(processResult *ProcessResult) {
		if processResult == nil {
			h.logger.Errorf("Received nil ProcessResult")
			return
		}
		h.HandleResult(processResult)
	}
}
