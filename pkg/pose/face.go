package pose

import "fmt"

// FaceBlendShape indexes face weights in the order the app streams them.
type FaceBlendShape int

const (
	EyeBlinkLeft FaceBlendShape = iota
	EyeLookDownLeft
	EyeLookInLeft
	EyeLookOutLeft
	EyeLookUpLeft
	EyeSquintLeft
	EyeWideLeft
	EyeBlinkRight
	EyeLookDownRight
	EyeLookInRight
	EyeLookOutRight
	EyeLookUpRight
	EyeSquintRight
	EyeWideRight
	JawForward
	JawLeft
	JawRight
	JawOpen
	MouthClose
	MouthFunnel
	MouthPucker
	MouthLeft
	MouthRight
	MouthSmileLeft
	MouthSmileRight
	MouthFrownLeft
	MouthFrownRight
	MouthDimpleLeft
	MouthDimpleRight
	MouthStretchLeft
	MouthStretchRight
	MouthRollLower
	MouthRollUpper
	MouthShrugLower
	MouthShrugUpper
	MouthPressLeft
	MouthPressRight
	MouthLowerDownLeft
	MouthLowerDownRight
	MouthUpperUpLeft
	MouthUpperUpRight
	BrowDownLeft
	BrowDownRight
	BrowInnerUp
	BrowOuterUpLeft
	BrowOuterUpRight
	CheekPuff
	CheekSquintLeft
	CheekSquintRight
	NoseSneerLeft
	NoseSneerRight
	TongueOut

	// NumBlendShapes is the number of weights in a face frame.
	NumBlendShapes = int(TongueOut) + 1
)

// FaceWeights holds one frame of blendshape weights.
type FaceWeights [NumBlendShapes]float64

var blendShapeNames = [...]string{
	"EyeBlinkLeft", "EyeLookDownLeft", "EyeLookInLeft", "EyeLookOutLeft", "EyeLookUpLeft", "EyeSquintLeft", "EyeWideLeft",
	"EyeBlinkRight", "EyeLookDownRight", "EyeLookInRight", "EyeLookOutRight", "EyeLookUpRight", "EyeSquintRight", "EyeWideRight",
	"JawForward", "JawLeft", "JawRight", "JawOpen",
	"MouthClose", "MouthFunnel", "MouthPucker", "MouthLeft", "MouthRight",
	"MouthSmileLeft", "MouthSmileRight", "MouthFrownLeft", "MouthFrownRight",
	"MouthDimpleLeft", "MouthDimpleRight", "MouthStretchLeft", "MouthStretchRight",
	"MouthRollLower", "MouthRollUpper", "MouthShrugLower", "MouthShrugUpper",
	"MouthPressLeft", "MouthPressRight", "MouthLowerDownLeft", "MouthLowerDownRight",
	"MouthUpperUpLeft", "MouthUpperUpRight",
	"BrowDownLeft", "BrowDownRight", "BrowInnerUp", "BrowOuterUpLeft", "BrowOuterUpRight",
	"CheekPuff", "CheekSquintLeft", "CheekSquintRight",
	"NoseSneerLeft", "NoseSneerRight",
	"TongueOut",
}

func (f FaceBlendShape) String() string {
	if f < 0 || int(f) >= len(blendShapeNames) {
		return fmt.Sprintf("FaceBlendShape(%d)", int(f))
	}
	return blendShapeNames[f]
}

// Named returns the weights keyed by blendshape name.
func (w *FaceWeights) Named() map[string]float64 {
	out := make(map[string]float64, NumBlendShapes)
	for i, v := range w {
		out[blendShapeNames[i]] = v
	}
	return out
}
