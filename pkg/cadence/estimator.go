// Package cadence turns discrete step-like events into per-second rates.
//
// An Estimator keeps the last few event times and magnitudes in a ring. Rates
// are computed over the span between the oldest and newest tracked event and
// fade linearly to zero once no event has been registered for Timeout.
package cadence

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTimeout = 750 * time.Millisecond
	DefaultFade    = 250 * time.Millisecond
	DefaultWindow  = 4
)

// Config tunes an Estimator. Zero fields take the defaults, except Fade which
// may be negative to disable fading (rates drop straight to zero).
type Config struct {
	Timeout time.Duration `yaml:"timeout"`
	Fade    time.Duration `yaml:"fade"`
	Window  int           `yaml:"window"`
}

// DefaultConfig returns the footstep tuning.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, Fade: DefaultFade, Window: DefaultWindow}
}

// Estimator is not safe for concurrent use; it belongs to the consumer loop.
type Estimator struct {
	cfg Config

	times     []time.Time
	distances []float64
	tail      int
	num       int
	last      time.Time

	stepsPerSecond    float64
	distancePerSecond float64

	totalSteps    uint64
	totalDistance float64
}

// New creates an Estimator with no history. Until the first step every rate
// reads as zero.
func New(cfg Config) *Estimator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Fade == 0 {
		cfg.Fade = DefaultFade
	}
	if cfg.Fade < 0 {
		cfg.Fade = 0
	}
	if cfg.Window < 2 {
		cfg.Window = DefaultWindow
	}
	return &Estimator{
		cfg:       cfg,
		times:     make([]time.Time, cfg.Window),
		distances: make([]float64, cfg.Window),
		tail:      -1,
	}
}

// Config returns the effective configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// RegisterStep records one event at now with the given magnitude and
// recomputes the rates.
func (e *Estimator) RegisterStep(now time.Time, distance float64) {
	e.totalSteps++
	e.totalDistance += distance

	e.tail = (e.tail + 1) % e.cfg.Window
	e.last = now
	e.times[e.tail] = now
	e.distances[e.tail] = distance
	if e.num < e.cfg.Window {
		e.num++
	}

	// a lone step is treated as spanning one timeout
	elapsed := e.cfg.Timeout.Seconds()
	if e.num >= 2 {
		head := (e.tail + 1) % e.num
		if span := e.times[e.tail].Sub(e.times[head]).Seconds(); span > 0 {
			elapsed = span
		}
	}
	e.stepsPerSecond = float64(e.num) / elapsed
	e.distancePerSecond = floats.Sum(e.distances[:e.num]) / elapsed
}

// fade reports the activity factor at now, dropping the history once the
// timeout has passed.
func (e *Estimator) fade(now time.Time) float64 {
	since := e.TimeSinceLastStep(now)
	if since <= e.cfg.Timeout {
		return 1
	}
	e.num = 0
	e.tail = -1
	if e.cfg.Fade <= 0 {
		return 0
	}
	f := 1 - float64(since-e.cfg.Timeout)/float64(e.cfg.Fade)
	if f < 0 {
		return 0
	}
	return f
}

// StepsPerSecond returns the event rate scaled by the fade factor at now.
func (e *Estimator) StepsPerSecond(now time.Time) float64 {
	return e.stepsPerSecond * e.fade(now)
}

// DistancePerSecond returns the magnitude rate scaled by the fade factor at now.
func (e *Estimator) DistancePerSecond(now time.Time) float64 {
	return e.distancePerSecond * e.fade(now)
}

// Halt clears the history. With fade the rates start fading from now,
// otherwise they drop to zero immediately.
func (e *Estimator) Halt(now time.Time, fade bool) {
	e.num = 0
	e.tail = -1
	if fade {
		e.last = earliest(e.last, now.Add(-e.cfg.Timeout))
		return
	}
	e.last = earliest(e.last, now.Add(-e.cfg.Timeout-e.cfg.Fade))
	e.stepsPerSecond = 0
	e.distancePerSecond = 0
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// TimeSinceLastStep is measured from the most recent RegisterStep. Before any
// step it is effectively unbounded.
func (e *Estimator) TimeSinceLastStep(now time.Time) time.Duration {
	return now.Sub(e.last)
}

// LastDistance is the magnitude of the newest tracked step, or zero once the
// history has been cleared.
func (e *Estimator) LastDistance() float64 {
	if e.num == 0 {
		return 0
	}
	return e.distances[e.tail]
}

func (e *Estimator) TotalSteps() uint64 {
	return e.totalSteps
}

func (e *Estimator) TotalDistance() float64 {
	return e.totalDistance
}

// Reading is a point-in-time view of an Estimator.
type Reading struct {
	StepsPerSecond    float64 `json:"steps_per_second"`
	DistancePerSecond float64 `json:"distance_per_second"`
	LastDistance      float64 `json:"last_distance"`
	TotalSteps        uint64  `json:"total_steps"`
	TotalDistance     float64 `json:"total_distance"`
}

// Read samples every rate at now.
func (e *Estimator) Read(now time.Time) Reading {
	r := Reading{LastDistance: e.LastDistance()}
	f := e.fade(now)
	r.StepsPerSecond = e.stepsPerSecond * f
	r.DistancePerSecond = e.distancePerSecond * f
	r.TotalSteps = e.totalSteps
	r.TotalDistance = e.totalDistance
	return r
}
