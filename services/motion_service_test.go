package services

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/poselink/pkg/config"
	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(d time.Duration) {
	c.mu.Lock()
	c.now = time.Unix(1000, 0).Add(d)
	c.mu.Unlock()
}

type motionFixture struct {
	clock *fakeClock
	store *pose.Store
	desc  *rig.Descriptor
	svc   *MotionService
	seq   uint64
}

func newMotionFixture(t *testing.T) *motionFixture {
	t.Helper()
	clock := &fakeClock{}
	clock.Set(0)
	desc, err := rig.Lookup(rig.Unity)
	require.NoError(t, err)
	store := pose.NewStore(time.Second, pose.WithClock(clock.Now))
	cfg := config.DefaultSessionConfig()
	svc, err := NewMotionService(store, desc, &cfg, customlog.Discard(), WithMotionClock(clock.Now))
	require.NoError(t, err)
	return &motionFixture{clock: clock, store: store, desc: desc, svc: svc}
}

// publish stores a snapshot received at the current fake time.
func (f *motionFixture) publish(mutate func(s *pose.Snapshot), touches ...pose.TouchPoint) {
	f.seq++
	n := f.desc.Len()
	s := &pose.Snapshot{
		Rig:               "Unity",
		Sequence:          f.seq,
		SessionGeneration: 1,
		ReceivedAt:        f.clock.Now(),
		Rotations:         make([]mgl64.Quat, n),
		Valid:             make([]bool, n),
	}
	for i := range s.Rotations {
		s.Rotations[i] = mgl64.QuatIdent()
		s.Valid[i] = true
	}
	if mutate != nil {
		mutate(s)
	}
	f.store.Publish(pose.Result{Snapshot: s, Touches: touches})
}

func footsteps(n uint32, magnitude float64) func(*pose.Snapshot) {
	return func(s *pose.Snapshot) {
		s.Events[pose.Footstep] = pose.Event{Count: n, Magnitude: magnitude}
	}
}

func TestMotionServiceEmptyStore(t *testing.T) {
	f := newMotionFixture(t)
	f.svc.Tick()
	st := f.svc.State()
	assert.Equal(t, "empty", st.State)
	assert.Zero(t, st.Sequence)
	assert.Zero(t, st.Cadence["Footstep"].StepsPerSecond)
}

func TestMotionServiceCadenceFromFootsteps(t *testing.T) {
	f := newMotionFixture(t)

	// counts already present when the consumer starts are not steps
	f.publish(footsteps(5, 0.3))
	f.svc.Tick()
	assert.Zero(t, f.svc.State().Cadence["Footstep"].TotalSteps)
	assert.Greater(t, f.svc.State().JointsWritten, 0)

	f.clock.Set(100 * time.Millisecond)
	f.publish(footsteps(6, 0.4))
	f.svc.Tick()

	f.clock.Set(600 * time.Millisecond)
	f.publish(footsteps(7, 0.6))
	f.svc.Tick()

	st := f.svc.State()
	assert.Equal(t, "live", st.State)
	r := st.Cadence["Footstep"]
	assert.Equal(t, uint64(2), r.TotalSteps)
	assert.InDelta(t, 4.0, r.StepsPerSecond, 1e-9)
	assert.InDelta(t, 2.0, r.DistancePerSecond, 1e-9)
	assert.InDelta(t, 0.6, r.LastDistance, 1e-9)
	assert.Equal(t, uint32(7), st.LastEvents["Footstep"].Count)

	// ticks without a new snapshot do not count the same step twice
	f.svc.Tick()
	assert.Equal(t, uint64(2), f.svc.State().Cadence["Footstep"].TotalSteps)
}

func TestMotionServiceFadesWhenStale(t *testing.T) {
	f := newMotionFixture(t)
	f.publish(footsteps(0, 0))
	f.svc.Tick()
	f.clock.Set(100 * time.Millisecond)
	f.publish(footsteps(1, 1))
	f.svc.Tick()
	f.clock.Set(200 * time.Millisecond)
	f.publish(footsteps(2, 1))
	f.svc.Tick()
	require.Greater(t, f.svc.State().Cadence["Footstep"].StepsPerSecond, 0.0)

	f.clock.Set(2 * time.Second)
	f.svc.Tick()
	st := f.svc.State()
	assert.Equal(t, "stale", st.State)
	assert.Zero(t, st.Cadence["Footstep"].StepsPerSecond)
}

func TestMotionServiceGesturesAndTouches(t *testing.T) {
	f := newMotionFixture(t)
	f.publish(nil)
	f.svc.Tick()

	f.clock.Set(50 * time.Millisecond)
	f.publish(func(s *pose.Snapshot) {
		s.Events[pose.ArmGestureL] = pose.Event{Count: 1, GestureCode: 6}
		s.Scalars.IsCrouching = true
		s.Transitions.Crouch = 1
	}, pose.TouchPoint{Index: 0, X: 0.5, Y: 0.5, Phase: pose.TouchBegun})
	f.svc.Tick()

	st := f.svc.State()
	rec, ok := st.LastEvents["ArmGestureL"]
	require.True(t, ok)
	assert.Equal(t, uint32(6), rec.GestureCode)
	assert.NotEmpty(t, rec.Gesture)
	assert.Equal(t, uint64(1), st.CrouchChanges)
	require.Len(t, st.Touches, 1)
	assert.Equal(t, pose.TouchBegun, st.Touches[0].Phase)
	_, hasEstimator := st.Cadence["ArmGestureL"]
	assert.False(t, hasEstimator, "gestures have no cadence")
}

func TestMotionServiceNewSessionRestartsCounts(t *testing.T) {
	f := newMotionFixture(t)
	f.publish(footsteps(10, 0.5))
	f.svc.Tick()

	f.clock.Set(100 * time.Millisecond)
	f.publish(func(s *pose.Snapshot) {
		s.SessionGeneration = 2
		s.Events[pose.Footstep] = pose.Event{Count: 1, Magnitude: 0.5}
	})
	f.svc.Tick()

	st := f.svc.State()
	assert.Equal(t, uint64(2), st.SessionGeneration)
	assert.Equal(t, uint64(1), st.Cadence["Footstep"].TotalSteps, "first step of the new session counts")
}

func TestMotionServiceApplyConfig(t *testing.T) {
	f := newMotionFixture(t)

	cfg := config.DefaultSessionConfig()
	cfg.Retarget.UpperBodyOnly = true
	delete(cfg.Cadence, "Jump")
	require.NoError(t, f.svc.ApplySessionConfig(&cfg))

	f.publish(nil)
	f.svc.Tick()
	st := f.svc.State()
	_, hasJump := st.Cadence["Jump"]
	assert.False(t, hasJump)

	lp := f.svc.LocalPose()
	assert.Equal(t, "Unity", lp.Rig)
	require.Len(t, lp.Computed, f.desc.Len())
	assert.False(t, lp.Computed[0], "root is skipped in upper body mode")
	computed := 0
	for _, ok := range lp.Computed[f.desc.UpperBodyStart:] {
		if ok {
			computed++
		}
	}
	assert.Greater(t, computed, 0)

	cfg.Retarget.Remap = "Nope"
	assert.Error(t, f.svc.ApplySessionConfig(&cfg))

	skel := rig.NewMapSkeletonFor(f.desc)
	assert.Greater(t, f.svc.ApplyTo(skel), 0)
}
