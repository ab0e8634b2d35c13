package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/open-teleop/poselink/pkg/cadence"
	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
)

// DefaultMotionInterval is the consumer tick when none is configured.
const DefaultMotionInterval = 10 * time.Millisecond

// recentTouches bounds the touch history kept for the API.
const recentTouches = 32

// EventRecord is the last detection of one event kind.
type EventRecord struct {
	Count       uint32    `json:"count"`
	Magnitude   float64   `json:"magnitude,omitempty"`
	GestureCode uint32    `json:"gesture_code,omitempty"`
	Gesture     string    `json:"gesture,omitempty"`
	At          time.Time `json:"at"`
}

// MotionState is the consumer-side view the API serves.
type MotionState struct {
	State             string                     `json:"state"`
	Sequence          uint64                     `json:"sequence"`
	SessionGeneration uint64                     `json:"session_generation"`
	UpdatedAt         time.Time                  `json:"updated_at"`
	Cadence           map[string]cadence.Reading `json:"cadence"`
	LastEvents        map[string]EventRecord     `json:"last_events"`
	CrouchChanges     uint64                     `json:"crouch_changes"`
	StableFootChanges uint64                     `json:"stable_foot_changes"`
	Touches           []pose.TouchPoint          `json:"touches"`
	JointsWritten     int                        `json:"joints_written"`
}

// LocalPose is the retargeted skeleton for one tick. Rotations are x, y, z, w.
type LocalPose struct {
	Rig       string       `json:"rig"`
	Bones     []string     `json:"bones"`
	Rotations [][4]float64 `json:"rotations"`
	Computed  []bool       `json:"computed"`
}

func quatArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// MotionService is the in-process consumer of the snapshot store. It
// retargets every new snapshot, turns event counters into cadence readings
// and keeps the results for readers.
type MotionService struct {
	store      *pose.Store
	retargeter *rig.Retargeter
	desc       *rig.Descriptor
	logger     customlog.Logger
	interval   time.Duration
	clock      func() time.Time

	mu         sync.RWMutex
	observer   pose.Observer
	primed     bool
	lastSeq    uint64
	generation uint64
	wasLive    bool
	crouches   uint64
	footSwaps  uint64
	estimators map[pose.EventKind]*cadence.Estimator
	lastEvents map[string]EventRecord
	touches    []pose.TouchPoint
	state      MotionState
}

// MotionOption configures a MotionService.
type MotionOption func(*MotionService)

// WithMotionClock overrides time.Now.
func WithMotionClock(clock func() time.Time) MotionOption {
	return func(m *MotionService) { m.clock = clock }
}

// WithMotionInterval sets the tick period.
func WithMotionInterval(d time.Duration) MotionOption {
	return func(m *MotionService) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewMotionService creates the consumer for desc from the session config.
func NewMotionService(store *pose.Store, desc *rig.Descriptor, cfg *config.SessionConfig, logger customlog.Logger, opts ...MotionOption) (*MotionService, error) {
	if store == nil {
		return nil, fmt.Errorf("motion service needs a snapshot store")
	}
	m := &MotionService{
		store:      store,
		desc:       desc,
		logger:     logger.WithField("component", "motion"),
		interval:   DefaultMotionInterval,
		clock:      time.Now,
		lastEvents: make(map[string]EventRecord),
	}
	for _, o := range opts {
		o(m)
	}
	if err := m.ApplySessionConfig(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

func buildRetargeter(desc *rig.Descriptor, cfg config.RetargetConfig) (*rig.Retargeter, error) {
	var remap rig.Remap
	if cfg.Remap != "" {
		r, ok := rig.LookupRemap(cfg.Remap)
		if !ok {
			return nil, fmt.Errorf("unknown remap table %q", cfg.Remap)
		}
		remap = r
	}
	return rig.NewRetargeter(desc, rig.Options{Remap: remap, UpperBodyOnly: cfg.UpperBodyOnly})
}

func buildEstimators(tuning map[string]cadence.Config) map[pose.EventKind]*cadence.Estimator {
	out := make(map[pose.EventKind]*cadence.Estimator, len(tuning))
	for name, c := range tuning {
		if k, ok := pose.ParseEventKind(name); ok && !k.IsGesture() {
			out[k] = cadence.New(c)
		}
	}
	return out
}

// ApplySessionConfig rebuilds the retargeter and the estimators. Cadence
// history restarts.
func (m *MotionService) ApplySessionConfig(cfg *config.SessionConfig) error {
	if cfg == nil {
		defaults := config.DefaultSessionConfig()
		cfg = &defaults
	}
	ret, err := buildRetargeter(m.desc, cfg.Retarget)
	if err != nil {
		return err
	}
	est := buildEstimators(cfg.Cadence)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.retargeter = ret
	m.estimators = est
	m.primed = false
	m.logger.Infof("Motion config applied: remap=%q upper_body_only=%v, %d cadence estimators",
		cfg.Retarget.Remap, cfg.Retarget.UpperBodyOnly, len(est))
	return nil
}

// Run ticks until ctx is done.
func (m *MotionService) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Infof("Motion service started (tick %v)", m.interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Infof("Motion service stopped")
			return nil
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick consumes the latest snapshot once.
func (m *MotionService) Tick() {
	now := m.clock()
	snap := m.store.Latest()
	state := m.store.State()
	drained := m.store.DrainTouches()

	m.mu.Lock()
	defer m.mu.Unlock()

	written := m.state.JointsWritten
	if snap != nil && (!m.primed || snap.Sequence != m.lastSeq) {
		if !m.primed || snap.SessionGeneration != m.generation {
			if m.primed {
				m.logger.Infof("New session generation %d, cadence history restarts", snap.SessionGeneration)
				for _, e := range m.estimators {
					e.Halt(now, false)
				}
			}
			m.generation = snap.SessionGeneration
		}
		if !m.primed {
			// Counters already seen before this consumer started are not events
			m.observer.ClearEventTriggers(snap)
			m.observer.CrouchChanged(snap)
			m.observer.StableFootChanged(snap)
			m.primed = true
		}
		m.lastSeq = snap.Sequence
		written = m.retargeter.Update(snap.Rotations, snap.Valid)
		m.observe(now, snap)
		if m.observer.CrouchChanged(snap) {
			m.crouches++
		}
		if m.observer.StableFootChanged(snap) {
			m.footSwaps++
		}
	}

	live := state == pose.Live
	if m.wasLive && !live {
		m.logger.Debugf("Peer went %s, fading cadence", state)
		for _, e := range m.estimators {
			e.Halt(now, true)
		}
	}
	m.wasLive = live

	if len(drained) > 0 {
		m.touches = append(m.touches, drained...)
		if n := len(m.touches); n > recentTouches {
			m.touches = append([]pose.TouchPoint(nil), m.touches[n-recentTouches:]...)
		}
	}

	readings := make(map[string]cadence.Reading, len(m.estimators))
	for k, e := range m.estimators {
		readings[k.String()] = e.Read(now)
	}
	events := make(map[string]EventRecord, len(m.lastEvents))
	for k, v := range m.lastEvents {
		events[k] = v
	}

	m.state = MotionState{
		State:             state.String(),
		Sequence:          m.lastSeq,
		SessionGeneration: m.generation,
		UpdatedAt:         now,
		Cadence:           readings,
		LastEvents:        events,
		CrouchChanges:     m.crouches,
		StableFootChanges: m.footSwaps,
		Touches:           append([]pose.TouchPoint(nil), m.touches...),
		JointsWritten:     written,
	}
}

func (m *MotionService) observe(now time.Time, snap *pose.Snapshot) {
	for i := 0; i < pose.NumEvents; i++ {
		k := pose.EventKind(i)
		if !m.observer.CheckTriggerAndUpdate(k, snap) {
			continue
		}
		ev := snap.Event(k)
		rec := EventRecord{Count: ev.Count, Magnitude: ev.Magnitude, At: now}
		if k.IsGesture() {
			rec.GestureCode = ev.GestureCode
			rec.Gesture = ev.Gesture().String()
		}
		m.lastEvents[k.String()] = rec
		if e, ok := m.estimators[k]; ok {
			e.RegisterStep(now, ev.Magnitude)
		}
	}
}

// State returns the result of the last tick.
func (m *MotionService) State() MotionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LocalPose copies the retargeted local rotations.
func (m *MotionService) LocalPose() LocalPose {
	m.mu.RLock()
	ret := m.retargeter
	m.mu.RUnlock()

	rots, ok := ret.LocalRotations()
	bones := make([]string, m.desc.Len())
	out := make([][4]float64, len(rots))
	for j := range bones {
		bones[j] = m.desc.BoneName(j)
	}
	for j, q := range rots {
		out[j] = quatArray(q)
	}
	return LocalPose{
		Rig:       m.desc.Kind.String(),
		Bones:     bones,
		Rotations: out,
		Computed:  ok,
	}
}

// ApplyTo writes the retargeted rotations onto skel.
func (m *MotionService) ApplyTo(skel rig.Skeleton) int {
	m.mu.RLock()
	ret := m.retargeter
	m.mu.RUnlock()
	return ret.ApplyTo(skel)
}
