// Package rig describes the skeleton conventions pose data can be mapped onto
// and converts camera-space joint rotations into parent-relative rotations.
package rig

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownRig is returned when a rig name does not match any Kind.
var ErrUnknownRig = errors.New("unknown rig")

// Kind selects one of the static rig tables.
type Kind int

const (
	Unity Kind = iota
	UE4
	Mixamo
	MetaHuman
)

var kindNames = [...]string{"Unity", "UE4", "Mixamo", "MetaHuman"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a rig name as sent on the wire to a Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRig, name)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Descriptor is the immutable definition of one rig convention. Slice fields
// are shared between callers and must not be modified.
type Descriptor struct {
	Kind Kind

	// Joints holds the joint names in wire order: body, left hand, right hand.
	Joints []string
	// Bones holds the target bone for each joint slot, "" when the slot has
	// no bone in the primary hierarchy.
	Bones []string
	// Parents holds the structural parent index of each slot. The root is its own parent.
	Parents []int
	// Extras names bones for slots left empty in Bones, looked up on the target by name.
	Extras map[int]string
	// Base is applied to the root rotation.
	Base mgl64.Quat

	BodyJoints int
	HandJoints int
	// LowerBodyJoints counts the leg joints following the root.
	LowerBodyJoints int
	// UpperBodyStart is the first joint animated in upper-body-only mode.
	UpperBodyStart int
}

// Len returns the number of joint slots.
func (d *Descriptor) Len() int {
	return len(d.Joints)
}

// BoneList returns the target bone identity of every slot.
func (d *Descriptor) BoneList() []string {
	return d.Bones
}

// ParentIndices returns the structural parent of every slot.
func (d *Descriptor) ParentIndices() []int {
	return d.Parents
}

// BoneName resolves the target bone for slot j, consulting Extras for empty slots.
func (d *Descriptor) BoneName(j int) string {
	if j < 0 || j >= len(d.Bones) {
		return ""
	}
	if b := d.Bones[j]; b != "" {
		return b
	}
	return d.Extras[j]
}

// JointIndex returns the slot of a wire joint name, or -1.
func (d *Descriptor) JointIndex(name string) int {
	for i, n := range d.Joints {
		if n == name {
			return i
		}
	}
	return -1
}

// Lookup returns the descriptor for a rig kind.
func Lookup(k Kind) (*Descriptor, error) {
	switch k {
	case Unity:
		return unityRig, nil
	case UE4:
		return ue4Rig, nil
	case Mixamo:
		return mixamoRig, nil
	case MetaHuman:
		return metaHumanRig, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownRig, k)
}

// LookupName is ParseKind followed by Lookup.
func LookupName(name string) (*Descriptor, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return Lookup(k)
}

// bodySplit marks where the legs end and the upper body begins in a rig's
// body joints.
type bodySplit struct {
	lowerBody  int
	upperStart int
}

func newDescriptor(k Kind, body, left, right, bones []string, parents []int, extras map[int]string, base mgl64.Quat, split bodySplit) *Descriptor {
	joints := make([]string, 0, len(body)+len(left)+len(right))
	joints = append(joints, body...)
	joints = append(joints, left...)
	joints = append(joints, right...)
	if len(bones) != len(joints) || len(parents) != len(joints) || len(left) != len(right) {
		panic(fmt.Sprintf("rig %v: inconsistent table sizes joints=%d bones=%d parents=%d", k, len(joints), len(bones), len(parents)))
	}
	if split.lowerBody < 0 || split.upperStart <= split.lowerBody || split.upperStart >= len(body) {
		panic(fmt.Sprintf("rig %v: body split %+v outside %d body joints", k, split, len(body)))
	}
	return &Descriptor{
		Kind:            k,
		Joints:          joints,
		Bones:           bones,
		Parents:         parents,
		Extras:          extras,
		Base:            base.Normalize(),
		BodyJoints:      len(body),
		HandJoints:      len(left),
		LowerBodyJoints: split.lowerBody,
		UpperBodyStart:  split.upperStart,
	}
}

// bonesExcept copies names, blanking the listed slots.
func bonesExcept(names []string, blank map[int]string) []string {
	out := make([]string, len(names))
	copy(out, names)
	for i := range blank {
		out[i] = ""
	}
	return out
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
