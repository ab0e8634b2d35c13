package pose

import (
	"bytes"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/pkg/rig"
)

// ErrMalformedEnvelope is returned when a datagram is not a pose envelope.
var ErrMalformedEnvelope = errors.New("malformed pose envelope")

// DecoderOptions configure a Decoder.
type DecoderOptions struct {
	// Format is assumed until a packet carries a PF field.
	Format Format
	// Desktop marks the leg joints invalid on every decode.
	Desktop bool
	Clock   func() time.Time
	Logger  log.Logger
}

// Result describes one successful decode.
type Result struct {
	Snapshot *Snapshot
	// HandshakePending is set when the packet announced a new session and
	// carried a version, so the sender expects a handshake reply.
	HandshakePending bool
	// Touches holds the touch transitions carried by this packet.
	Touches []TouchPoint
	// Skipped counts fields that were present but unusable.
	Skipped int
}

// DecoderStats are cumulative counters.
type DecoderStats struct {
	Decoded       uint64 `json:"decoded"`
	Malformed     uint64 `json:"malformed"`
	SkippedFields uint64 `json:"skipped_fields"`
	Sessions      uint64 `json:"sessions"`
}

// Decoder turns datagrams into snapshots for one rig. Decode must be called
// from a single goroutine; the snapshots it returns may be shared freely.
type Decoder struct {
	desc    *rig.Descriptor
	clock   func() time.Time
	logger  log.Logger
	desktop atomic.Bool

	format Format
	cur    Snapshot

	decoded   atomic.Uint64
	malformed atomic.Uint64
	skipped   atomic.Uint64
	sessions  atomic.Uint64
}

// NewDecoder creates a decoder whose snapshots carry desc.Len() rotation slots.
func NewDecoder(desc *rig.Descriptor, opts DecoderOptions) (*Decoder, error) {
	if desc == nil {
		return nil, fmt.Errorf("rig descriptor cannot be nil")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	d := &Decoder{
		desc:   desc,
		clock:  opts.Clock,
		logger: opts.Logger,
		format: opts.Format,
	}
	d.desktop.Store(opts.Desktop)

	d.cur.Rig = desc.Kind.String()
	d.cur.Format = opts.Format
	d.cur.Scalars.HandZoneL = DefaultHandZone
	d.cur.Scalars.HandZoneR = DefaultHandZone
	d.cur.Rotations = make([]mgl64.Quat, desc.Len())
	d.cur.Valid = make([]bool, desc.Len())
	for i := range d.cur.Rotations {
		d.cur.Rotations[i] = mgl64.QuatIdent()
	}
	for i := range d.cur.Touches {
		d.cur.Touches[i].Index = i
	}
	return d, nil
}

// Descriptor returns the rig the decoder fills rotations for.
func (d *Decoder) Descriptor() *rig.Descriptor {
	return d.desc
}

// SetDesktop switches upper-body-only decoding. Safe for concurrent use.
func (d *Decoder) SetDesktop(on bool) {
	d.desktop.Store(on)
}

// Stats returns cumulative decode counters. Safe for concurrent use.
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{
		Decoded:       d.decoded.Load(),
		Malformed:     d.malformed.Load(),
		SkippedFields: d.skipped.Load(),
		Sessions:      d.sessions.Load(),
	}
}

// Decode applies one datagram. A malformed envelope returns
// ErrMalformedEnvelope and leaves the decoder state untouched. Otherwise the
// result carries a new snapshot; fields absent from the payload keep their
// previous values.
func (d *Decoder) Decode(payload []byte) (Result, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		d.malformed.Add(1)
		return Result{}, fmt.Errorf("%w: not a JSON object", ErrMalformedEnvelope)
	}
	env, err := parseEnvelope(payload)
	if err != nil {
		d.malformed.Add(1)
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	now := d.clock()
	s := &d.cur
	res := Result{}
	for _, field := range env.bad {
		res.Skipped += d.skip(field)
	}

	setString(&s.UserName, env.UserName)
	setString(&s.Version, env.Version)
	setString(&s.DeviceName, env.DeviceName)
	setString(&s.Rig, env.Rig)
	if env.ModelLatency != nil {
		s.ModelLatency = *env.ModelLatency
	}
	if env.Timestamp != nil {
		s.Timestamp = *env.Timestamp
	}
	if env.Orientation != nil {
		s.Orientation = *env.Orientation
	}
	if env.PF != nil {
		if *env.PF == 0 {
			d.format = FormatVerbose
		} else {
			d.format = FormatCompact
		}
	}
	s.Format = d.format

	s.HandshakePending = false
	if env.SessionUUID != "" {
		s.SessionID = env.SessionUUID
		s.SessionGeneration++
		s.SessionStartedAt = now
		s.HandshakePending = s.Version != ""
		d.sessions.Add(1)
		d.logger.WithFields(map[string]interface{}{
			"session": env.SessionUUID,
			"version": s.Version,
			"device":  s.DeviceName,
		}).Infof("New pose session announced")
	}

	prevScalars, prevVis := s.Scalars, s.Visibility

	if d.format == FormatCompact {
		res.Skipped += d.applyCompact(s, env)
	} else {
		res.Skipped += d.applyVerbose(s, env)
	}
	if d.desktop.Load() {
		for j := 1; j <= d.desc.LowerBodyJoints && j < len(s.Valid); j++ {
			s.Valid[j] = false
		}
	}

	d.bumpTransitions(s, prevScalars, prevVis)

	if len(env.Face) > 0 && !bytes.Equal(env.Face, []byte("null")) {
		if w, ok := decodeFace(env.Face); ok {
			s.Face = w
		} else {
			res.Skipped += d.skip("Face")
		}
	}

	if env.Touches != nil && len(*env.Touches) > 1 {
		res.Touches = decodeTouchTransitions(*env.Touches)
	}
	if env.TouchState != nil && len(*env.TouchState) > 0 {
		applyTouchStates(&s.Touches, *env.TouchState)
	}

	s.Sequence++
	s.ReceivedAt = now
	d.decoded.Add(1)

	res.Snapshot = s.clone()
	res.HandshakePending = s.HandshakePending
	return res, nil
}

func (d *Decoder) skip(field string) int {
	d.skipped.Add(1)
	d.logger.Debugf("Skipping unusable pose field %s", field)
	return 1
}

func (d *Decoder) applyCompact(s *Snapshot, env *envelope) int {
	skipped := 0
	desc := d.desc
	if b := env.Body; b != nil {
		if b.VisA != nil && !applyCompactVisibility(&s.Visibility, *b.VisA) {
			skipped += d.skip("Body.VisA")
		}
		if b.ScaA != nil && !applyCompactScalars(&s.Scalars, *b.ScaA) {
			skipped += d.skip("Body.ScaA")
		}
		if b.VecA != nil && !applyCompactBodyVectors(&s.Vectors, *b.VecA) {
			skipped += d.skip("Body.VecA")
		}
		if b.Vec3A != nil && !applyCompactVectors3D(&s.Vectors, *b.Vec3A) {
			skipped += d.skip("Body.Vec3A")
		}
		if b.EveA != nil && !applyCompactEvents(&s.Events, *b.EveA) {
			skipped += d.skip("Body.EveA")
		}
		if b.RotA != nil {
			decodeCompactRotations(s.Rotations, s.Valid, 0, desc.BodyJoints, *b.RotA)
		}
	}
	for _, h := range d.hands(s, env) {
		if h.env == nil {
			continue
		}
		if h.env.VecA != nil && !applyCompactHandVector(h.point, *h.env.VecA) {
			skipped += d.skip(h.field + ".VecA")
		}
		if h.env.RotA == nil {
			continue
		}
		rot := *h.env.RotA
		if len(rot)/symbolsPerQuat != desc.HandJoints {
			// partial hands are dropped whole
			decodeCompactRotations(s.Rotations, s.Valid, h.offset, desc.HandJoints, "")
			if rot != "" {
				skipped += d.skip(h.field + ".RotA")
			}
			continue
		}
		decodeCompactRotations(s.Rotations, s.Valid, h.offset, desc.HandJoints, rot)
	}
	return skipped
}

func (d *Decoder) applyVerbose(s *Snapshot, env *envelope) int {
	skipped := 0
	desc := d.desc
	if b := env.Body; b != nil {
		if b.Scalars != nil {
			applyVerboseScalars(&s.Scalars, &s.Visibility, b.Scalars)
		}
		if b.Vectors != nil {
			for i := applyVerboseBodyVectors(&s.Vectors, b.Vectors); i > 0; i-- {
				skipped += d.skip("Body.Vectors")
			}
		}
		if b.Events != nil {
			applyVerboseEvents(&s.Events, b.Events)
		}
		if b.Rotations != nil {
			for i := applyVerboseRotations(s.Rotations, s.Valid, 0, desc.Joints[:desc.BodyJoints], b.Rotations); i > 0; i-- {
				skipped += d.skip("Body.Rotations")
			}
		}
	}
	for _, h := range d.hands(s, env) {
		if h.env == nil {
			continue
		}
		if h.env.Vectors != nil && !vec2(h.point, h.env.Vectors.PointScreen, 1) {
			skipped += d.skip(h.field + ".Vectors")
		}
		if h.env.Rotations != nil {
			names := desc.Joints[h.offset : h.offset+desc.HandJoints]
			for i := applyVerboseRotations(s.Rotations, s.Valid, h.offset, names, h.env.Rotations); i > 0; i-- {
				skipped += d.skip(h.field + ".Rotations")
			}
		}
	}
	return skipped
}

type handSlot struct {
	env    *handEnvelope
	point  *mgl64.Vec2
	offset int
	field  string
}

func (d *Decoder) hands(s *Snapshot, env *envelope) [2]handSlot {
	return [2]handSlot{
		{env.LeftHand, &s.Vectors.PointHandL, d.desc.BodyJoints, "LeftHand"},
		{env.RightHand, &s.Vectors.PointHandR, d.desc.BodyJoints + d.desc.HandJoints, "RightHand"},
	}
}

func (d *Decoder) bumpTransitions(s *Snapshot, prev Scalars, prevVis Visibility) {
	if s.Scalars.IsCrouching != prev.IsCrouching {
		s.Transitions.Crouch++
	}
	if s.Scalars.StableFoot != prev.StableFoot {
		s.Transitions.StableFoot++
	}
	if s.Scalars.HandZoneL != prev.HandZoneL {
		s.Transitions.HandZoneL++
	}
	if s.Scalars.HandZoneR != prev.HandZoneR {
		s.Transitions.HandZoneR++
	}
	if s.Visibility != prevVis {
		s.Transitions.Visibility++
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
