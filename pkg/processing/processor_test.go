package processing

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
)

func testSnapshot(seq uint64) *pose.Snapshot {
	s := &pose.Snapshot{
		SessionID:         "sess-1",
		Rig:               "Unity",
		Sequence:          seq,
		SessionGeneration: 2,
		ReceivedAt:        time.Unix(1700000000, 500),
		Rotations: []mgl64.Quat{
			mgl64.QuatIdent(),
			mgl64.QuatRotate(0.5, mgl64.Vec3{0, 1, 0}),
			{},
		},
		Valid: []bool{true, true, false},
	}
	s.Scalars.BodyHeight = 1.75
	s.Scalars.ChestYaw = -0.25
	s.Scalars.IsCrouching = true
	s.Events[pose.Footstep] = pose.Event{Count: 7, Magnitude: 0.5}
	s.Events[pose.ArmGestureL] = pose.Event{Count: 1, GestureCode: 12}
	return s
}

func TestEncodeDecodeFrame(t *testing.T) {
	enc := NewFrameEncoder(customlog.Discard())
	s := testSnapshot(42)

	data, err := enc.Encode(s, pose.Live)
	require.NoError(t, err)

	f, err := DecodeFrame(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), f.Sequence)
	assert.Equal(t, uint64(2), f.SessionGeneration)
	assert.Equal(t, s.ReceivedAt.UnixNano(), f.ReceivedAt.UnixNano())
	assert.Equal(t, "sess-1", f.SessionID)
	assert.Equal(t, "Unity", f.Rig)
	assert.Equal(t, pose.Live, f.State)
	assert.InDelta(t, 1.75, f.BodyHeight, 1e-6)
	assert.InDelta(t, -0.25, f.ChestYaw, 1e-6)
	assert.True(t, f.Crouching)
	assert.Equal(t, []bool{true, true, false}, f.Valid)
	require.Len(t, f.Rotations, 3)
	assert.True(t, f.Rotations[1].ApproxEqualThreshold(s.Rotations[1], 1e-6))
	require.Len(t, f.EventCounts, pose.NumEvents)
	assert.Equal(t, uint32(7), f.EventCounts[pose.Footstep])
	assert.InDelta(t, 0.5, f.EventMagnitudes[pose.Footstep], 1e-6)
	assert.Nil(t, f.Face)
}

func TestEncodeFaceAndState(t *testing.T) {
	enc := NewFrameEncoder(customlog.Discard())
	s := testSnapshot(1)
	var w pose.FaceWeights
	w[3] = 0.75
	s.Face = &w

	data, err := enc.Encode(s, pose.Stale)
	require.NoError(t, err)
	f, err := DecodeFrame(data)
	require.NoError(t, err)

	assert.Equal(t, pose.Stale, f.State)
	require.Len(t, f.Face, pose.NumBlendShapes)
	assert.InDelta(t, 0.75, f.Face[3], 1e-6)
}

func TestEncodeNilSnapshot(t *testing.T) {
	_, err := NewFrameEncoder(customlog.Discard()).Encode(nil, pose.Empty)
	assert.Error(t, err)
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := DecodeFrame([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeFrame([]byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0})
	assert.Error(t, err)
}
