package rig

// Joint tables per rig. The sending app streams joints in this order; the
// parent table is shared by every 54-slot rig.

var standardParents = []int{
	0, 0, 1, 2, 3, 0, 5, 6, 7, 0, 9, 10, 11, 12, 11, 14, 15, 11, 17, 18,
	16, 0, 20, 22, 23, 20, 25, 26, 20, 28, 29, 20, 31, 32, 20, 34, 35,
	19, 0, 37, 39, 40, 37, 42, 43, 37, 45, 46, 37, 48, 49, 37, 51, 52,
}

var unityBody = []string{
	"Hips", "Right_UpperLeg", "Right_LowerLeg", "Right_Foot", "Right_Toes",
	"Left_UpperLeg", "Left_LowerLeg", "Left_Foot", "Left_Toes",
	"Spine", "Chest", "UpperChest", "Neck", "Head",
	"Left_Shoulder", "Left_UpperArm", "Left_LowerArm",
	"Right_Shoulder", "Right_UpperArm", "Right_LowerArm",
}

func unityHand(side string) []string {
	return []string{
		side + "_Hand", side + "_LowerArm_Twist",
		side + "_IndexProximal", side + "_IndexIntermediate", side + "_IndexDistal",
		side + "_MiddleProximal", side + "_MiddleIntermediate", side + "_MiddleDistal",
		side + "_RingProximal", side + "_RingIntermediate", side + "_RingDistal",
		side + "_PinkyProximal", side + "_PinkyIntermediate", side + "_PinkyDistal",
		side + "_ThumbProximal", side + "_ThumbIntermediate", side + "_ThumbDistal",
	}
}

// unityHumanoidBones follows the Unity humanoid avatar, which has no forearm twist bone.
var unityHumanoidBones = []string{
	"Hips", "RightUpperLeg", "RightLowerLeg", "RightFoot", "RightToes",
	"LeftUpperLeg", "LeftLowerLeg", "LeftFoot", "LeftToes",
	"Spine", "Chest", "UpperChest", "Neck", "Head",
	"LeftShoulder", "LeftUpperArm", "LeftLowerArm",
	"RightShoulder", "RightUpperArm", "RightLowerArm",
	"LeftHand", "",
	"LeftIndexProximal", "LeftIndexIntermediate", "LeftIndexDistal",
	"LeftMiddleProximal", "LeftMiddleIntermediate", "LeftMiddleDistal",
	"LeftRingProximal", "LeftRingIntermediate", "LeftRingDistal",
	"LeftLittleProximal", "LeftLittleIntermediate", "LeftLittleDistal",
	"LeftThumbProximal", "LeftThumbIntermediate", "LeftThumbDistal",
	"RightHand", "",
	"RightIndexProximal", "RightIndexIntermediate", "RightIndexDistal",
	"RightMiddleProximal", "RightMiddleIntermediate", "RightMiddleDistal",
	"RightRingProximal", "RightRingIntermediate", "RightRingDistal",
	"RightLittleProximal", "RightLittleIntermediate", "RightLittleDistal",
	"RightThumbProximal", "RightThumbIntermediate", "RightThumbDistal",
}

var ue4Body = []string{
	"pelvis", "thigh_r", "calf_r", "foot_r", "ball_r",
	"thigh_l", "calf_l", "foot_l", "ball_l",
	"spine_01", "spine_02", "spine_03", "neck_01", "head",
	"clavicle_l", "upperarm_l", "lowerarm_l",
	"clavicle_r", "upperarm_r", "lowerarm_r",
}

func ue4Hand(s string) []string {
	return []string{
		"hand_" + s, "lowerarm_twist_01_" + s,
		"index_01_" + s, "index_02_" + s, "index_03_" + s,
		"middle_01_" + s, "middle_02_" + s, "middle_03_" + s,
		"ring_01_" + s, "ring_02_" + s, "ring_03_" + s,
		"pinky_01_" + s, "pinky_02_" + s, "pinky_03_" + s,
		"thumb_01_" + s, "thumb_02_" + s, "thumb_03_" + s,
	}
}

var ue4Extras = map[int]string{
	21: "lowerarm_twist_01_l",
	38: "lowerarm_twist_01_r",
}

var mixamoBody = []string{
	"Hips", "RightUpLeg", "RightLeg", "RightFoot", "RightToeBase",
	"LeftUpLeg", "LeftLeg", "LeftFoot", "LeftToeBase",
	"Spine", "Spine1", "Spine2", "Neck", "Head",
	"LeftShoulder", "LeftArm", "LeftForeArm",
	"RightShoulder", "RightArm", "RightForeArm",
}

func mixamoHand(side string) []string {
	return []string{
		side + "Hand", side + "ForeArmTwist",
		side + "HandIndex1", side + "HandIndex2", side + "HandIndex3",
		side + "HandMiddle1", side + "HandMiddle2", side + "HandMiddle3",
		side + "HandRing1", side + "HandRing2", side + "HandRing3",
		side + "HandPinky1", side + "HandPinky2", side + "HandPinky3",
		side + "HandThumb1", side + "HandThumb2", side + "HandThumb3",
	}
}

var mixamoExtras = map[int]string{
	21: "LeftForeArmTwist",
	38: "RightForeArmTwist",
}

var metaHumanBody = []string{
	"pelvis", "thigh_r", "calf_r", "foot_r", "ball_r",
	"thigh_l", "calf_l", "foot_l", "ball_l",
	"spine_01", "spine_02", "spine_03", "spine_04", "spine_05",
	"neck_01", "neck_02", "head",
	"clavicle_l", "upperarm_l", "lowerarm_l",
	"clavicle_r", "upperarm_r", "lowerarm_r",
}

func metaHumanHand(s string) []string {
	return []string{
		"hand_" + s, "lowerarm_twist_01_" + s, "lowerarm_twist_02_" + s,
		"index_metacarpal_" + s, "index_01_" + s, "index_02_" + s, "index_03_" + s,
		"middle_carpal_" + s, "middle_01_" + s, "middle_02_" + s, "middle_03_" + s,
		"ring_metacarpal_" + s, "ring_01_" + s, "ring_02_" + s, "ring_03_" + s,
		"pinky_metacarpal_" + s, "pinky_01_" + s, "pinky_02_" + s, "pinky_03_" + s,
		"thumb_01_" + s, "thumb_02_" + s, "thumb_03_" + s,
	}
}

var metaHumanParents = []int{
	0, 0, 1, 2, 3, 0, 5, 6, 7, 0, 9, 10, 11, 12, 13, 14, 15, 13, 17, 18, 13, 20, 21,
	19, 19, 19, 23, 26, 27, 28, 23, 30, 31, 32, 23, 34, 35, 36, 23, 38, 39, 40, 23, 42, 43,
	22, 22, 22, 45, 48, 49, 50, 45, 52, 53, 54, 45, 56, 57, 58, 45, 60, 61, 62, 45, 64, 65,
}

// metaHumanExtras are bones outside a standard humanoid, resolved on the target by name.
var metaHumanExtras = map[int]string{
	12: "spine_04",
	13: "spine_05",
	15: "neck_02",
	24: "lowerarm_twist_01_l",
	25: "lowerarm_twist_02_l",
	26: "index_metacarpal_l",
	30: "middle_metacarpal_l",
	34: "ring_metacarpal_l",
	38: "pinky_metacarpal_l",
	46: "lowerarm_twist_01_r",
	47: "lowerarm_twist_02_r",
	48: "index_metacarpal_r",
	52: "middle_metacarpal_r",
	56: "ring_metacarpal_r",
	60: "pinky_metacarpal_r",
}

// humanoidSplit is the layout every supported rig streams: the root, four
// joints per leg, then the spine.
var humanoidSplit = bodySplit{lowerBody: 8, upperStart: 9}

var (
	unityRig = newDescriptor(Unity,
		unityBody, unityHand("Left"), unityHand("Right"),
		unityHumanoidBones, standardParents, nil,
		q(0, 0.7071, 0.7071, 0), humanoidSplit)

	ue4Rig = newDescriptor(UE4,
		ue4Body, ue4Hand("l"), ue4Hand("r"),
		bonesExcept(concat(ue4Body, ue4Hand("l"), ue4Hand("r")), ue4Extras),
		standardParents, ue4Extras,
		q(0, 0, 1, 0), humanoidSplit)

	mixamoRig = newDescriptor(Mixamo,
		mixamoBody, mixamoHand("Left"), mixamoHand("Right"),
		bonesExcept(concat(mixamoBody, mixamoHand("Left"), mixamoHand("Right")), mixamoExtras),
		standardParents, mixamoExtras,
		q(0, 0.7071, 0.7071, 0), humanoidSplit)

	metaHumanRig = newDescriptor(MetaHuman,
		metaHumanBody, metaHumanHand("l"), metaHumanHand("r"),
		bonesExcept(concat(metaHumanBody, metaHumanHand("l"), metaHumanHand("r")), metaHumanExtras),
		metaHumanParents, metaHumanExtras,
		q(0, 0.7, 0.7, 0), humanoidSplit)
)
