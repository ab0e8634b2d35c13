package processing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/poselink/pkg/flatbuffers/poselink/frame"
	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/pose"
)

// ErrShortFrame is returned for buffers too small to hold a PoseFrame.
var ErrShortFrame = errors.New("frame buffer too short")

// Frame is a decoded PoseFrame.
type Frame struct {
	Sequence          uint64       `json:"sequence"`
	SessionGeneration uint64       `json:"session_generation"`
	ReceivedAt        time.Time    `json:"received_at"`
	SessionID         string       `json:"session_id,omitempty"`
	Rig               string       `json:"rig,omitempty"`
	State             pose.State   `json:"state"`
	BodyHeight        float64      `json:"body_height"`
	ChestYaw          float64      `json:"chest_yaw"`
	StanceYaw         float64      `json:"stance_yaw"`
	Crouching         bool         `json:"crouching"`
	Rotations         []mgl64.Quat `json:"-"`
	Valid             []bool       `json:"valid"`
	EventCounts       []uint32     `json:"event_counts"`
	EventMagnitudes   []float64    `json:"event_magnitudes"`
	Face              []float64    `json:"face,omitempty"`
}

// FrameEncoder turns snapshots into PoseFrame flatbuffers. It is safe for
// concurrent use; builders are pooled per call.
type FrameEncoder struct {
	logger   customlog.Logger
	builders sync.Pool
}

// NewFrameEncoder creates a frame encoder
func NewFrameEncoder(logger customlog.Logger) *FrameEncoder {
	return &FrameEncoder{
		logger: logger,
		builders: sync.Pool{New: func() interface{} {
			return flatbuffers.NewBuilder(1024)
		}},
	}
}

// Encode serializes one snapshot. The returned slice is owned by the caller.
func (e *FrameEncoder) Encode(s *pose.Snapshot, state pose.State) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot encode a frame without a snapshot")
	}
	builder := e.builders.Get().(*flatbuffers.Builder)
	defer func() {
		builder.Reset()
		e.builders.Put(builder)
	}()

	sessionOffset := builder.CreateString(s.SessionID)
	rigOffset := builder.CreateString(s.Rig)

	frame.PoseFrameStartRotationsVector(builder, len(s.Rotations)*4)
	for i := len(s.Rotations) - 1; i >= 0; i-- {
		q := s.Rotations[i]
		builder.PrependFloat32(float32(q.W))
		builder.PrependFloat32(float32(q.V[2]))
		builder.PrependFloat32(float32(q.V[1]))
		builder.PrependFloat32(float32(q.V[0]))
	}
	rotationsOffset := builder.EndVector(len(s.Rotations) * 4)

	frame.PoseFrameStartValidVector(builder, len(s.Valid))
	for i := len(s.Valid) - 1; i >= 0; i-- {
		builder.PrependBool(s.Valid[i])
	}
	validOffset := builder.EndVector(len(s.Valid))

	frame.PoseFrameStartEventCountsVector(builder, pose.NumEvents)
	for i := pose.NumEvents - 1; i >= 0; i-- {
		builder.PrependUint32(s.Events[i].Count)
	}
	countsOffset := builder.EndVector(pose.NumEvents)

	frame.PoseFrameStartEventMagnitudesVector(builder, pose.NumEvents)
	for i := pose.NumEvents - 1; i >= 0; i-- {
		builder.PrependFloat32(float32(s.Events[i].Magnitude))
	}
	magnitudesOffset := builder.EndVector(pose.NumEvents)

	var faceOffset flatbuffers.UOffsetT
	if s.Face != nil {
		frame.PoseFrameStartFaceVector(builder, len(s.Face))
		for i := len(s.Face) - 1; i >= 0; i-- {
			builder.PrependFloat32(float32(s.Face[i]))
		}
		faceOffset = builder.EndVector(len(s.Face))
	}

	frame.PoseFrameStart(builder)
	frame.PoseFrameAddSequence(builder, s.Sequence)
	frame.PoseFrameAddSessionGeneration(builder, s.SessionGeneration)
	frame.PoseFrameAddReceivedNs(builder, s.ReceivedAt.UnixNano())
	frame.PoseFrameAddSessionId(builder, sessionOffset)
	frame.PoseFrameAddRig(builder, rigOffset)
	frame.PoseFrameAddState(builder, peerState(state))
	frame.PoseFrameAddBodyHeight(builder, float32(s.Scalars.BodyHeight))
	frame.PoseFrameAddChestYaw(builder, float32(s.Scalars.ChestYaw))
	frame.PoseFrameAddStanceYaw(builder, float32(s.Scalars.StanceYaw))
	frame.PoseFrameAddCrouching(builder, s.Scalars.IsCrouching)
	frame.PoseFrameAddRotations(builder, rotationsOffset)
	frame.PoseFrameAddValid(builder, validOffset)
	frame.PoseFrameAddEventCounts(builder, countsOffset)
	frame.PoseFrameAddEventMagnitudes(builder, magnitudesOffset)
	if s.Face != nil {
		frame.PoseFrameAddFace(builder, faceOffset)
	}
	frame.FinishPoseFrameBuffer(builder, frame.PoseFrameEnd(builder))

	out := append([]byte(nil), builder.FinishedBytes()...)
	e.logger.Debugf("Encoded frame seq=%d (%d bytes, %d slots)", s.Sequence, len(out), len(s.Valid))
	return out, nil
}

// CreateProcessorFunc adapts the encoder to a pool processor.
func (e *FrameEncoder) CreateProcessorFunc() FrameProcessor {
	return func(job Job) ([]byte, error) {
		return e.Encode(job.Snapshot, job.State)
	}
}

// DecodeFrame parses a PoseFrame. Malformed input yields an error instead of
// a panic.
func DecodeFrame(buf []byte) (f Frame, err error) {
	if len(buf) < 8 {
		return Frame{}, ErrShortFrame
	}
	defer func() {
		if r := recover(); r != nil {
			f = Frame{}
			err = fmt.Errorf("malformed frame: %v", r)
		}
	}()

	fb := frame.GetRootAsPoseFrame(buf, 0)
	f = Frame{
		Sequence:          fb.Sequence(),
		SessionGeneration: fb.SessionGeneration(),
		ReceivedAt:        time.Unix(0, fb.ReceivedNs()),
		SessionID:         string(fb.SessionId()),
		Rig:               string(fb.Rig()),
		State:             poseState(fb.State()),
		BodyHeight:        float64(fb.BodyHeight()),
		ChestYaw:          float64(fb.ChestYaw()),
		StanceYaw:         float64(fb.StanceYaw()),
		Crouching:         fb.Crouching(),
	}

	n := fb.RotationsLength() / 4
	f.Rotations = make([]mgl64.Quat, n)
	for i := 0; i < n; i++ {
		f.Rotations[i] = mgl64.Quat{
			V: mgl64.Vec3{
				float64(fb.Rotations(4 * i)),
				float64(fb.Rotations(4*i + 1)),
				float64(fb.Rotations(4*i + 2)),
			},
			W: float64(fb.Rotations(4*i + 3)),
		}
	}
	f.Valid = make([]bool, fb.ValidLength())
	for i := range f.Valid {
		f.Valid[i] = fb.Valid(i)
	}
	f.EventCounts = make([]uint32, fb.EventCountsLength())
	for i := range f.EventCounts {
		f.EventCounts[i] = fb.EventCounts(i)
	}
	f.EventMagnitudes = make([]float64, fb.EventMagnitudesLength())
	for i := range f.EventMagnitudes {
		f.EventMagnitudes[i] = float64(fb.EventMagnitudes(i))
	}
	if k := fb.FaceLength(); k > 0 {
		f.Face = make([]float64, k)
		for i := range f.Face {
			f.Face[i] = float64(fb.Face(i))
		}
	}
	return f, nil
}

func peerState(s pose.State) frame.PeerState {
	switch s {
	case pose.Live:
		return frame.PeerStateLive
	case pose.Stale:
		return frame.PeerStateStale
	}
	return frame.PeerStateEmpty
}

func poseState(s frame.PeerState) pose.State {
	switch s {
	case frame.PeerStateLive:
		return pose.Live
	case frame.PeerStateStale:
		return pose.Stale
	}
	return pose.Empty
}
