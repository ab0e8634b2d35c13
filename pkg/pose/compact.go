package pose

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/open-teleop/poselink/pkg/codec"
)

const (
	visibilityLen   = 5
	scalarsLen      = 14
	bodyVectorsLen  = 12
	handVectorsLen  = 4
	vectors3DLen    = 30
	eventSlotLen    = 5
	symbolsPerQuat  = 8
	compactFaceSize = 2 * NumBlendShapes
)

// Each apply function returns false when the field was present but unusable,
// in which case the snapshot is left as it was.

func applyCompactVisibility(v *Visibility, s string) bool {
	if len(s) < visibilityLen {
		return false
	}
	v.Torso = s[0] != '0'
	v.LegL = s[1] != '0'
	v.LegR = s[2] != '0'
	v.ArmL = s[3] != '0'
	v.ArmR = s[4] != '0'
	return true
}

func applyCompactScalars(sc *Scalars, s string) bool {
	if len(s) < scalarsLen {
		return false
	}
	sc.BodyHeight = codec.DecodeSigned(s[0], s[1]) + 1.0
	sc.ChestYaw = codec.DecodeSigned(s[2], s[3]) * 180.0
	sc.StanceYaw = codec.DecodeSigned(s[4], s[5]) * 180.0
	sc.StableFoot = codec.DecodeUnsigned2(s[6], s[7])
	sc.HandZoneL = codec.DecodeUnsigned2(s[8], s[9])
	sc.HandZoneR = codec.DecodeUnsigned2(s[10], s[11])
	sc.IsCrouching = codec.DecodeUnsigned2(s[12], s[13]) > 0
	return true
}

func pair(s string, i int) float64 {
	return codec.DecodeSigned(s[i], s[i+1])
}

func applyCompactBodyVectors(v *Vectors, s string) bool {
	if len(s) < bodyVectorsLen {
		return false
	}
	v.HipLean = mgl64.Vec2{pair(s, 0) * 180.0, pair(s, 2) * 180.0}
	v.HipScreen = mgl64.Vec2{pair(s, 4), pair(s, 6)}
	v.ChestScreen = mgl64.Vec2{pair(s, 8), pair(s, 10)}
	return true
}

func applyCompactHandVector(dst *mgl64.Vec2, s string) bool {
	if len(s) < handVectorsLen {
		return false
	}
	*dst = mgl64.Vec2{pair(s, 0), pair(s, 2)}
	return true
}

// applyCompactVectors3D decodes the hip displacement followed by the hand and
// foot targets, three pairs each.
func applyCompactVectors3D(v *Vectors, s string) bool {
	if len(s) < vectors3DLen {
		return false
	}
	vec := func(i int) *mgl64.Vec3 {
		return &mgl64.Vec3{pair(s, i), pair(s, i+2), pair(s, i+4)}
	}
	v.HipDisplacement = vec(0)
	v.HandTargetL = vec(6)
	v.HandTargetR = vec(12)
	v.FootTargetL = vec(18)
	v.FootTargetR = vec(24)
	return true
}

// applyCompactEvents decodes 5-symbol event slots: a 3-symbol count followed
// by a magnitude pair, or a 2-symbol gesture code for gesture slots. Strings
// that are not a whole number of slots are rejected. Shorter strings update
// only the leading slots.
func applyCompactEvents(ev *Events, s string) bool {
	if len(s)%eventSlotLen != 0 {
		return false
	}
	for k := 0; k < NumEvents && (k+1)*eventSlotLen <= len(s); k++ {
		o := k * eventSlotLen
		e := &ev[k]
		e.Count = codec.DecodeUnsigned3(s[o], s[o+1], s[o+2])
		if EventKind(k).IsGesture() {
			e.GestureCode = codec.DecodeUnsigned2(s[o+3], s[o+4])
		} else {
			e.Magnitude = codec.DecodeSigned(s[o+3], s[o+4])
		}
	}
	return true
}

// decodeCompactFace accepts exactly one pair per blendshape.
func decodeCompactFace(s string) (*FaceWeights, bool) {
	if len(s) != compactFaceSize {
		return nil, false
	}
	var w FaceWeights
	for i := range w {
		w[i] = pair(s, 2*i)
	}
	return &w, true
}

// decodeCompactRotations decodes up to n quaternions into rots/valid,
// starting at offset. Slots with no data are identity and invalid.
func decodeCompactRotations(rots []mgl64.Quat, valid []bool, offset, n int, s string) int {
	quats := codec.DecodeQuaternionString(s)
	if len(quats) > n {
		quats = quats[:n]
	}
	for i := 0; i < n; i++ {
		if i < len(quats) {
			rots[offset+i] = quats[i]
			valid[offset+i] = true
		} else {
			rots[offset+i] = mgl64.QuatIdent()
			valid[offset+i] = false
		}
	}
	return len(quats)
}
