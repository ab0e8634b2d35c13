package pose

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/open-teleop/poselink/pkg/codec"
)

func vec2(dst *mgl64.Vec2, values []float64, scale float64) bool {
	if values == nil {
		return true
	}
	if len(values) < 2 {
		return false
	}
	*dst = mgl64.Vec2{values[0] * scale, values[1] * scale}
	return true
}

func applyVerboseScalars(sc *Scalars, vis *Visibility, in *verboseScalars) {
	if in.BodyHeight != nil {
		sc.BodyHeight = *in.BodyHeight
	}
	if in.ChestYaw != nil {
		sc.ChestYaw = *in.ChestYaw * 180.0
	}
	if in.StanceYaw != nil {
		sc.StanceYaw = *in.StanceYaw * 180.0
	}
	if in.StableFoot != nil {
		sc.StableFoot = toUint(*in.StableFoot)
	}
	if in.HandZoneL != nil {
		sc.HandZoneL = toUint(*in.HandZoneL)
	}
	if in.HandZoneR != nil {
		sc.HandZoneR = toUint(*in.HandZoneR)
	}
	if in.IsCrouching != nil {
		sc.IsCrouching = *in.IsCrouching > 0.5
	}

	flag := func(dst *bool, v *float64) {
		if v != nil {
			*dst = *v > 0.5
		}
	}
	flag(&vis.Torso, in.VisTorso)
	flag(&vis.LegL, in.VisLegL)
	flag(&vis.LegR, in.VisLegR)
	flag(&vis.ArmL, in.VisArmL)
	flag(&vis.ArmR, in.VisArmR)
}

func toUint(v float64) uint32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint32(math.Round(v))
}

// applyVerboseBodyVectors returns the number of malformed vectors.
func applyVerboseBodyVectors(v *Vectors, in *verboseBodyVectors) int {
	bad := 0
	if !vec2(&v.HipLean, in.HipLean, 180.0) {
		bad++
	}
	if !vec2(&v.HipScreen, in.HipScreen, 1) {
		bad++
	}
	if !vec2(&v.ChestScreen, in.ChestScreen, 1) {
		bad++
	}
	return bad
}

func applyVerboseEvents(ev *Events, in *verboseEvents) {
	for k, e := range in {
		if e == nil {
			continue
		}
		if e.Count != nil {
			ev[k].Count = toUint(*e.Count)
		}
		if e.Magnitude != nil {
			ev[k].Magnitude = *e.Magnitude
		}
		if e.Current != nil {
			ev[k].GestureCode = toUint(*e.Current)
		}
	}
}

// applyVerboseRotations reads named 4-value rotations for the joints
// names[0:], writing slots from offset. A joint missing from the map keeps its
// previous value; a joint present without exactly four values becomes invalid.
func applyVerboseRotations(rots []mgl64.Quat, valid []bool, offset int, names []string, in map[string][]float64) int {
	bad := 0
	for i, name := range names {
		values, ok := in[name]
		if !ok {
			continue
		}
		if len(values) != 4 {
			rots[offset+i] = mgl64.QuatIdent()
			valid[offset+i] = false
			bad++
			continue
		}
		rots[offset+i] = codec.QuatFromWire(values[0], values[1], values[2], values[3])
		valid[offset+i] = true
	}
	return bad
}

// decodeFace accepts either a compact string or a verbose array of exactly
// NumBlendShapes numbers.
func decodeFace(raw json.RawMessage) (*FaceWeights, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decodeCompactFace(s)
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil || len(values) != NumBlendShapes {
		return nil, false
	}
	var w FaceWeights
	copy(w[:], values)
	return &w, true
}
