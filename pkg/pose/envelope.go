package pose

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// envelope mirrors the datagram JSON. Pointer and RawMessage fields stay nil
// when the sender omitted them, which is how absent values are told apart
// from zero values.
type envelope struct {
	UserName     *string
	Version      *string
	DeviceName   *string
	SessionUUID  string
	ModelLatency *int
	Timestamp    *float64
	Rig          *string
	PF           *int
	Orientation  *int

	Touches    *string
	TouchState *string

	Face json.RawMessage

	Body      *bodyEnvelope
	LeftHand  *handEnvelope
	RightHand *handEnvelope

	// bad lists fields that were present with the wrong JSON type.
	bad []string
}

type bodyEnvelope struct {
	VisA  *string
	ScaA  *string
	EveA  *string
	VecA  *string
	Vec3A *string
	RotA  *string

	Scalars   *verboseScalars
	Vectors   *verboseBodyVectors
	Events    *verboseEvents
	Rotations map[string][]float64
}

type handEnvelope struct {
	VecA *string
	RotA *string

	Vectors   *verboseHandVectors
	Rotations map[string][]float64
}

type verboseScalars struct {
	VisTorso    *float64
	VisArmL     *float64
	VisArmR     *float64
	VisLegL     *float64
	VisLegR     *float64
	HandZoneL   *float64
	HandZoneR   *float64
	ChestYaw    *float64
	StanceYaw   *float64
	BodyHeight  *float64
	IsCrouching *float64
	StableFoot  *float64
}

type verboseBodyVectors struct {
	HipLean     []float64
	HipScreen   []float64
	ChestScreen []float64
}

type verboseHandVectors struct {
	PointScreen []float64
}

type verboseEvent struct {
	Count     *float64
	Magnitude *float64
	Current   *float64
}

// verboseEvents is indexed by EventKind.
type verboseEvents [NumEvents]*verboseEvent

// parseEnvelope reads the datagram one field at a time. Only invalid JSON or
// a non-object root is an error; a field of the wrong type is recorded in
// bad and left unset so the rest of the packet still applies.
func parseEnvelope(payload []byte) (*envelope, error) {
	if !gjson.ValidBytes(payload) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, errors.New("not a JSON object")
	}

	var p envParser
	env := &envelope{
		UserName:     p.str(root, "", "userName"),
		Version:      p.str(root, "", "version"),
		DeviceName:   p.str(root, "", "deviceName"),
		ModelLatency: p.integer(root, "", "ModelLatency"),
		Timestamp:    p.num(root, "", "Timestamp"),
		Rig:          p.str(root, "", "Rig"),
		PF:           p.integer(root, "", "PF"),
		Orientation:  p.integer(root, "", "Orientation"),
		Touches:      p.str(root, "", "Touches"),
		TouchState:   p.str(root, "", "TouchState"),
	}
	if id := p.str(root, "", "sessionUUID"); id != nil {
		env.SessionUUID = *id
	}
	// Face is either a compact string or a number array; decodeFace sorts it out.
	if f, ok := present(root, "Face"); ok {
		env.Face = json.RawMessage(f.Raw)
	}
	if b, ok := p.object(root, "", "Body"); ok {
		env.Body = p.body(b)
	}
	if h, ok := p.object(root, "", "LeftHand"); ok {
		env.LeftHand = p.hand(h, "LeftHand")
	}
	if h, ok := p.object(root, "", "RightHand"); ok {
		env.RightHand = p.hand(h, "RightHand")
	}
	env.bad = p.bad
	return env, nil
}

type envParser struct {
	bad []string
}

func present(obj gjson.Result, key string) (gjson.Result, bool) {
	v := obj.Get(key)
	return v, v.Exists() && v.Type != gjson.Null
}

func (p *envParser) reject(path, key string) {
	if path != "" {
		key = path + "." + key
	}
	p.bad = append(p.bad, key)
}

func (p *envParser) str(obj gjson.Result, path, key string) *string {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	if v.Type != gjson.String {
		p.reject(path, key)
		return nil
	}
	s := v.Str
	return &s
}

func (p *envParser) num(obj gjson.Result, path, key string) *float64 {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	if v.Type != gjson.Number {
		p.reject(path, key)
		return nil
	}
	f := v.Num
	return &f
}

func (p *envParser) integer(obj gjson.Result, path, key string) *int {
	f := p.num(obj, path, key)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

func (p *envParser) object(obj gjson.Result, path, key string) (gjson.Result, bool) {
	v, ok := present(obj, key)
	if !ok {
		return v, false
	}
	if !v.IsObject() {
		p.reject(path, key)
		return v, false
	}
	return v, true
}

// numbers returns nil when key is absent and an empty slice when the value is
// not an array of numbers. The apply step counts the empty slice as unusable.
func numbers(v gjson.Result) []float64 {
	if !v.IsArray() {
		return []float64{}
	}
	arr := v.Array()
	out := make([]float64, 0, len(arr))
	for _, e := range arr {
		if e.Type != gjson.Number {
			return []float64{}
		}
		out = append(out, e.Num)
	}
	return out
}

func numbersAt(obj gjson.Result, key string) []float64 {
	v, ok := present(obj, key)
	if !ok {
		return nil
	}
	return numbers(v)
}

// rotations reads a joint-name map. Joints whose value is not a number array
// come back empty and are invalidated by applyVerboseRotations.
func (p *envParser) rotations(obj gjson.Result, path string) map[string][]float64 {
	v, ok := p.object(obj, path, "Rotations")
	if !ok {
		return nil
	}
	out := make(map[string][]float64)
	v.ForEach(func(k, val gjson.Result) bool {
		out[k.String()] = numbers(val)
		return true
	})
	return out
}

func (p *envParser) body(b gjson.Result) *bodyEnvelope {
	const path = "Body"
	env := &bodyEnvelope{
		VisA:      p.str(b, path, "VisA"),
		ScaA:      p.str(b, path, "ScaA"),
		EveA:      p.str(b, path, "EveA"),
		VecA:      p.str(b, path, "VecA"),
		Vec3A:     p.str(b, path, "Vec3A"),
		RotA:      p.str(b, path, "RotA"),
		Rotations: p.rotations(b, path),
	}
	if sc, ok := p.object(b, path, "Scalars"); ok {
		const sp = path + ".Scalars"
		env.Scalars = &verboseScalars{
			VisTorso:    p.num(sc, sp, "VisTorso"),
			VisArmL:     p.num(sc, sp, "VisArmL"),
			VisArmR:     p.num(sc, sp, "VisArmR"),
			VisLegL:     p.num(sc, sp, "VisLegL"),
			VisLegR:     p.num(sc, sp, "VisLegR"),
			HandZoneL:   p.num(sc, sp, "HandZoneL"),
			HandZoneR:   p.num(sc, sp, "HandZoneR"),
			ChestYaw:    p.num(sc, sp, "ChestYaw"),
			StanceYaw:   p.num(sc, sp, "StanceYaw"),
			BodyHeight:  p.num(sc, sp, "BodyHeight"),
			IsCrouching: p.num(sc, sp, "IsCrouching"),
			StableFoot:  p.num(sc, sp, "StableFoot"),
		}
	}
	if vec, ok := p.object(b, path, "Vectors"); ok {
		env.Vectors = &verboseBodyVectors{
			HipLean:     numbersAt(vec, "HipLean"),
			HipScreen:   numbersAt(vec, "HipScreen"),
			ChestScreen: numbersAt(vec, "ChestScreen"),
		}
	}
	if ev, ok := p.object(b, path, "Events"); ok {
		const ep = path + ".Events"
		env.Events = &verboseEvents{}
		for k := range env.Events {
			name := EventKind(k).String()
			e, ok := p.object(ev, ep, name)
			if !ok {
				continue
			}
			en := ep + "." + name
			env.Events[k] = &verboseEvent{
				Count:     p.num(e, en, "Count"),
				Magnitude: p.num(e, en, "Magnitude"),
				Current:   p.num(e, en, "Current"),
			}
		}
	}
	return env
}

func (p *envParser) hand(h gjson.Result, path string) *handEnvelope {
	env := &handEnvelope{
		VecA:      p.str(h, path, "VecA"),
		RotA:      p.str(h, path, "RotA"),
		Rotations: p.rotations(h, path),
	}
	if vec, ok := p.object(h, path, "Vectors"); ok {
		env.Vectors = &verboseHandVectors{PointScreen: numbersAt(vec, "PointScreen")}
	}
	return env
}
