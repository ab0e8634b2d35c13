// Package pose decodes pose datagrams into immutable snapshots of the latest
// known state of one remote peer.
package pose

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Format is the packet encoding selected in the handshake.
type Format int

const (
	FormatVerbose Format = 0
	FormatCompact Format = 1
)

func (f Format) String() string {
	if f == FormatVerbose {
		return "verbose"
	}
	return "compact"
}

// State describes how authoritative a snapshot is.
type State int

const (
	Empty State = iota
	Live
	Stale
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Stale:
		return "stale"
	}
	return "empty"
}

// DefaultHandZone is the zone reported before the first scalar update.
const DefaultHandZone = 5

// Scalars are the body metrics sent every frame.
type Scalars struct {
	BodyHeight  float64 `json:"body_height"`
	ChestYaw    float64 `json:"chest_yaw"`
	StanceYaw   float64 `json:"stance_yaw"`
	IsCrouching bool    `json:"is_crouching"`
	StableFoot  uint32  `json:"stable_foot"`
	HandZoneL   uint32  `json:"hand_zone_l"`
	HandZoneR   uint32  `json:"hand_zone_r"`
}

// Visibility flags per body part.
type Visibility struct {
	Torso bool `json:"torso"`
	LegL  bool `json:"leg_l"`
	LegR  bool `json:"leg_r"`
	ArmL  bool `json:"arm_l"`
	ArmR  bool `json:"arm_r"`
}

// Vectors are screen and lean vectors. The 3D targets are nil until a peer
// running a newer protocol sends them.
type Vectors struct {
	HipLean     mgl64.Vec2 `json:"hip_lean"`
	HipScreen   mgl64.Vec2 `json:"hip_screen"`
	ChestScreen mgl64.Vec2 `json:"chest_screen"`
	PointHandL  mgl64.Vec2 `json:"point_hand_l"`
	PointHandR  mgl64.Vec2 `json:"point_hand_r"`

	HipDisplacement *mgl64.Vec3 `json:"hip_displacement,omitempty"`
	HandTargetL     *mgl64.Vec3 `json:"hand_target_l,omitempty"`
	HandTargetR     *mgl64.Vec3 `json:"hand_target_r,omitempty"`
	FootTargetL     *mgl64.Vec3 `json:"foot_target_l,omitempty"`
	FootTargetR     *mgl64.Vec3 `json:"foot_target_r,omitempty"`
}

// Transitions count how often each edge-detected value has changed since the
// decoder was created. Consumers compare counters instead of polling flags,
// so no change is lost between reads.
type Transitions struct {
	Crouch     uint64 `json:"crouch"`
	StableFoot uint64 `json:"stable_foot"`
	HandZoneL  uint64 `json:"hand_zone_l"`
	HandZoneR  uint64 `json:"hand_zone_r"`
	Visibility uint64 `json:"visibility"`
}

// Snapshot is the latest known state of a peer. A published snapshot is never
// modified; every decode produces a new one.
type Snapshot struct {
	SessionID    string  `json:"session_id,omitempty"`
	Version      string  `json:"version,omitempty"`
	DeviceName   string  `json:"device_name,omitempty"`
	UserName     string  `json:"user_name,omitempty"`
	Rig          string  `json:"rig,omitempty"`
	Format       Format  `json:"format"`
	ModelLatency int     `json:"model_latency"`
	Timestamp    float64 `json:"timestamp"`
	Orientation  int     `json:"orientation"`

	Scalars     Scalars     `json:"scalars"`
	Visibility  Visibility  `json:"visibility"`
	Vectors     Vectors     `json:"vectors"`
	Events      Events      `json:"events"`
	Transitions Transitions `json:"transitions"`

	// Rotations and Valid always have the rig's slot count.
	Rotations []mgl64.Quat `json:"-"`
	Valid     []bool       `json:"valid"`

	Face    *FaceWeights            `json:"face,omitempty"`
	Touches [TouchSlots]TouchPoint `json:"touches"`

	SessionGeneration uint64    `json:"session_generation"`
	Sequence          uint64    `json:"sequence"`
	ReceivedAt        time.Time `json:"received_at"`
	SessionStartedAt  time.Time `json:"session_started_at"`
	HandshakePending  bool      `json:"handshake_pending"`
}

// State reports Empty for a nil snapshot, Stale when nothing was decoded for
// timeout, and Live otherwise.
func (s *Snapshot) State(now time.Time, timeout time.Duration) State {
	if s == nil {
		return Empty
	}
	if now.Sub(s.ReceivedAt) >= timeout {
		return Stale
	}
	return Live
}

// Event returns one event slot.
func (s *Snapshot) Event(k EventKind) Event {
	if s == nil || k < 0 || int(k) >= NumEvents {
		return Event{}
	}
	return s.Events[k]
}

// ValidCount counts slots carrying a usable rotation.
func (s *Snapshot) ValidCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, v := range s.Valid {
		if v {
			n++
		}
	}
	return n
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Rotations = append([]mgl64.Quat(nil), s.Rotations...)
	c.Valid = append([]bool(nil), s.Valid...)
	if s.Face != nil {
		f := *s.Face
		c.Face = &f
	}
	c.Vectors.HipDisplacement = cloneVec3(s.Vectors.HipDisplacement)
	c.Vectors.HandTargetL = cloneVec3(s.Vectors.HandTargetL)
	c.Vectors.HandTargetR = cloneVec3(s.Vectors.HandTargetR)
	c.Vectors.FootTargetL = cloneVec3(s.Vectors.FootTargetL)
	c.Vectors.FootTargetR = cloneVec3(s.Vectors.FootTargetR)
	return &c
}

func cloneVec3(v *mgl64.Vec3) *mgl64.Vec3 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
