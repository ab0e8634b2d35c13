package api

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/open-teleop/poselink/pkg/pose"
	"github.com/open-teleop/poselink/pkg/rig"
	"github.com/open-teleop/poselink/pkg/session"
	"github.com/open-teleop/poselink/services"
)

// --- Data Structures for API responses ---

// SessionSource is the live session as seen by the API.
type SessionSource interface {
	Peer() (session.Peer, bool)
	Stats() session.Stats
	Handshake() session.Handshake
	DisconnectPeer() error
}

// MotionSource is the consumer-side state as seen by the API.
type MotionSource interface {
	State() services.MotionState
	LocalPose() services.LocalPose
}

// SnapshotResponse is a snapshot with its rotations as x, y, z, w arrays.
type SnapshotResponse struct {
	*pose.Snapshot
	State     string       `json:"state"`
	Rotations [][4]float64 `json:"rotations"`
}

// NewSnapshotResponse wraps s for JSON output.
func NewSnapshotResponse(s *pose.Snapshot, state pose.State) SnapshotResponse {
	rots := make([][4]float64, len(s.Rotations))
	for i, q := range s.Rotations {
		rots[i] = quatArray(q)
	}
	return SnapshotResponse{Snapshot: s, State: state.String(), Rotations: rots}
}

func quatArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// SessionResponse describes the peer arbitration state.
type SessionResponse struct {
	State            string          `json:"state"`
	HandshakePending bool            `json:"handshake_pending"`
	Peer             *session.Peer   `json:"peer,omitempty"`
	Stats            session.Stats   `json:"stats"`
	Handshake        json.RawMessage `json:"handshake,omitempty"`
}

// RigResponse describes the rig being decoded.
type RigResponse struct {
	Kind            string         `json:"kind"`
	Joints          []string       `json:"joints"`
	Bones           []string       `json:"bones"`
	Parents         []int          `json:"parents"`
	Extras          map[int]string `json:"extras,omitempty"`
	BodyJoints      int            `json:"body_joints"`
	HandJoints      int            `json:"hand_joints"`
	LowerBodyJoints int            `json:"lower_body_joints"`
	UpperBodyStart  int            `json:"upper_body_start"`
}

// NewRigResponse describes desc.
func NewRigResponse(desc *rig.Descriptor) RigResponse {
	return RigResponse{
		Kind:            desc.Kind.String(),
		Joints:          desc.Joints,
		Bones:           desc.BoneList(),
		Parents:         desc.ParentIndices(),
		Extras:          desc.Extras,
		BodyJoints:      desc.BodyJoints,
		HandJoints:      desc.HandJoints,
		LowerBodyJoints: desc.LowerBodyJoints,
		UpperBodyStart:  desc.UpperBodyStart,
	}
}
