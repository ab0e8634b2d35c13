package diagnostic

import (
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/processing"
	"github.com/open-teleop/poselink/pkg/session"
)

// SystemMetrics is a point-in-time view of the pipeline
type SystemMetrics struct {
	Timestamp  time.Time `json:"timestamp"`
	StartedAt  time.Time `json:"started_at"`
	Uptime     string    `json:"uptime"`
	Goroutines int       `json:"goroutines"`
	HeapAlloc  string    `json:"heap_alloc"`

	Listener       *session.Stats          `json:"listener,omitempty"`
	Decoder        *pose.DecoderStats      `json:"decoder,omitempty"`
	Pool           *processing.PoolMetrics `json:"pool,omitempty"`
	TouchesQueued  int                     `json:"touches_queued"`
	TouchesDropped uint64                  `json:"touches_dropped"`
}

// Sources are the components metrics are read from. Nil members are skipped.
type Sources struct {
	Listener *session.Listener
	Decoder  *pose.Decoder
	Store    *pose.Store
	Pool     *processing.ProcessingPool
}

// DiagnosticService reports pipeline diagnostics
type DiagnosticService struct {
	mu        sync.RWMutex
	sources   Sources
	startedAt time.Time
	clock     func() time.Time
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(sources Sources) *DiagnosticService {
	return &DiagnosticService{
		sources:   sources,
		startedAt: time.Now(),
		clock:     time.Now,
	}
}

// SetPool attaches the frame pool once it exists.
func (s *DiagnosticService) SetPool(pool *processing.ProcessingPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources.Pool = pool
}

// GetMetrics collects the current metrics
func (s *DiagnosticService) GetMetrics() SystemMetrics {
	s.mu.RLock()
	src := s.sources
	s.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := s.clock()
	m := SystemMetrics{
		Timestamp:  now,
		StartedAt:  s.startedAt,
		Uptime:     now.Sub(s.startedAt).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  humanize.Bytes(mem.HeapAlloc),
	}
	if src.Listener != nil {
		st := src.Listener.Stats()
		m.Listener = &st
	}
	if src.Decoder != nil {
		st := src.Decoder.Stats()
		m.Decoder = &st
	}
	if src.Pool != nil {
		pm := src.Pool.GetMetrics()
		m.Pool = &pm
	}
	if src.Store != nil {
		m.TouchesQueued = src.Store.Touches().Len()
		m.TouchesDropped = src.Store.Touches().Dropped()
	}
	return m
}

// GetMetricsHandler handles API requests for pipeline metrics
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetMetrics(),
	})
}
