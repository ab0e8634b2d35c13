package processing

import (
	"sync"
	"time"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
)

// Job is one snapshot waiting to be turned into a frame.
type Job struct {
	Snapshot *pose.Snapshot
	State    pose.State
}

// ProcessResult is the result of encoding a snapshot
type ProcessResult struct {
	Topic     string
	Data      []byte
	Sequence  uint64
	Timestamp int64
	Error     error
}

// ResultHandler is a function that handles processed results
type ResultHandler func(result *ProcessResult)

// FrameProcessor encodes a job in a worker
type FrameProcessor func(job Job) ([]byte, error)

// ProcessingPool fans snapshots out to a fixed set of encoding workers.
type ProcessingPool struct {
	name          string
	topic         string
	workerCount   int
	logger        customlog.Logger
	jobQueue      chan Job
	running       bool
	stopped       bool
	wg            sync.WaitGroup
	mu            sync.RWMutex
	processor     FrameProcessor
	resultHandler ResultHandler
	queueSize     int
	metrics       *PoolMetrics
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	DroppedCount      int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
	mu                sync.Mutex
}

// NewProcessingPool creates a new processing pool. Results carry topic.
func NewProcessingPool(
	name string,
	topic string,
	workerCount int,
	queueSize int,
	logger customlog.Logger,
) *ProcessingPool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &ProcessingPool{
		name:        name,
		topic:       topic,
		workerCount: workerCount,
		queueSize:   queueSize,
		logger:      logger,
		jobQueue:    make(chan Job, queueSize),
		metrics:     &PoolMetrics{},
	}
}

// SetProcessor sets the frame processor function
func (p *ProcessingPool) SetProcessor(processor FrameProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
}

// SetResultHandler sets the result handler function
func (p *ProcessingPool) SetResultHandler(handler ResultHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultHandler = handler
}

// ProcessSnapshot queues a snapshot for encoding. It never blocks; a full
// queue drops the snapshot and returns false.
func (p *ProcessingPool) ProcessSnapshot(s *pose.Snapshot, state pose.State) bool {
	if s == nil {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		p.logger.Debugf("%s pool not running, discarding snapshot %d", p.name, s.Sequence)
		return false
	}

	p.metrics.mu.Lock()
	p.metrics.QueuedCount++
	p.metrics.mu.Unlock()

	select {
	case p.jobQueue <- Job{Snapshot: s, State: state}:
		return true
	default:
		p.metrics.mu.Lock()
		p.metrics.DroppedCount++
		p.metrics.mu.Unlock()
		p.logger.Warnf("%s pool queue is full, discarding snapshot %d", p.name, s.Sequence)
		return false
	}
}

// Start starts the processing pool workers. A stopped pool cannot be restarted.
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.stopped {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue and waits for the workers
func (p *ProcessingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)

	p.wg.Wait()
	p.logger.Infof("%s pool stopped", p.name)

	p.logMetrics()
}

func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for job := range p.jobQueue {
		p.mu.RLock()
		processor := p.processor
		resultHandler := p.resultHandler
		p.mu.RUnlock()

		if processor == nil {
			p.logger.Errorf("No frame processor set for %s pool", p.name)
			continue
		}

		startTime := time.Now()
		data, err := processor(job)
		processingTime := time.Since(startTime).Microseconds()

		p.metrics.mu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metrics.mu.Unlock()

		if err != nil {
			p.logger.Errorf("Error encoding snapshot %d in %s pool: %v", job.Snapshot.Sequence, p.name, err)
		}

		if resultHandler != nil {
			resultHandler(&ProcessResult{
				Topic:     p.topic,
				Data:      data,
				Sequence:  job.Snapshot.Sequence,
				Timestamp: job.Snapshot.ReceivedAt.UnixNano(),
				Error:     err,
			})
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	return PoolMetrics{
		ProcessedCount:    p.metrics.ProcessedCount,
		ErrorCount:        p.metrics.ErrorCount,
		QueuedCount:       p.metrics.QueuedCount,
		DroppedCount:      p.metrics.DroppedCount,
		LastProcessedTime: p.metrics.LastProcessedTime,
		ProcessingTimeAvg: p.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: p.metrics.ProcessingTimeMax,
	}
}

func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the job queue
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.jobQueue)
}

// GetQueueCapacity returns the capacity of the job queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
