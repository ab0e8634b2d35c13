package rig

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorSizes(t *testing.T) {
	tests := []struct {
		kind             Kind
		body, hand, slot int
	}{
		{Unity, 20, 17, 54},
		{UE4, 20, 17, 54},
		{Mixamo, 20, 17, 54},
		{MetaHuman, 23, 22, 67},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d, err := Lookup(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.body, d.BodyJoints)
			assert.Equal(t, tt.hand, d.HandJoints)
			assert.Equal(t, tt.slot, d.Len())
			assert.Len(t, d.BoneList(), tt.slot)
			assert.Len(t, d.ParentIndices(), tt.slot)
			assert.InDelta(t, 1.0, d.Base.Len(), 1e-9)
		})
	}
}

func TestParentsPrecedeChildren(t *testing.T) {
	for _, k := range []Kind{Unity, UE4, Mixamo, MetaHuman} {
		d, err := Lookup(k)
		require.NoError(t, err)
		assert.Equal(t, 0, d.Parents[0], "%v root must be its own parent", k)
		for j := 1; j < d.Len(); j++ {
			assert.Less(t, d.Parents[j], j, "%v slot %d", k, j)
		}
	}
}

func TestBodySplitPerRig(t *testing.T) {
	for _, k := range []Kind{Unity, UE4, Mixamo, MetaHuman} {
		d, err := Lookup(k)
		require.NoError(t, err)
		assert.Equal(t, 8, d.LowerBodyJoints, "%v", k)
		assert.Equal(t, 9, d.UpperBodyStart, "%v", k)
		// legs hang off the root and the upper body starts a new chain from it
		for j := 1; j <= d.LowerBodyJoints; j++ {
			assert.LessOrEqual(t, d.Parents[j], d.LowerBodyJoints, "%v slot %d", k, j)
		}
		assert.Equal(t, 0, d.Parents[d.UpperBodyStart], "%v", k)
	}
}

func TestNewDescriptorRejectsBadSplit(t *testing.T) {
	body := []string{"Root", "Leg", "Spine"}
	hand := []string{"Hand"}
	bones := []string{"Root", "Leg", "Spine", "HandL", "HandR"}
	parents := []int{0, 0, 0, 2, 2}

	assert.NotPanics(t, func() {
		d := newDescriptor(Unity, body, hand, hand, bones, parents, nil, mgl64.QuatIdent(), bodySplit{lowerBody: 1, upperStart: 2})
		assert.Equal(t, 2, d.UpperBodyStart)
	})
	assert.Panics(t, func() {
		newDescriptor(Unity, body, hand, hand, bones, parents, nil, mgl64.QuatIdent(), bodySplit{lowerBody: 2, upperStart: 3})
	})
	assert.Panics(t, func() {
		newDescriptor(Unity, body, hand, hand, bones, parents, nil, mgl64.QuatIdent(), bodySplit{lowerBody: 1, upperStart: 1})
	})
}

func TestExtrasFillEmptyBones(t *testing.T) {
	d, err := Lookup(UE4)
	require.NoError(t, err)
	assert.Equal(t, "", d.Bones[21])
	assert.Equal(t, "lowerarm_twist_01_l", d.BoneName(21))
	assert.Equal(t, "hand_l", d.BoneName(20))

	u, err := Lookup(Unity)
	require.NoError(t, err)
	assert.Equal(t, "", u.BoneName(21), "unity humanoid has no twist bone")

	m, err := Lookup(MetaHuman)
	require.NoError(t, err)
	assert.Equal(t, "spine_04", m.BoneName(12))
	assert.Equal(t, "pinky_metacarpal_r", m.BoneName(60))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("MetaHuman")
	require.NoError(t, err)
	assert.Equal(t, MetaHuman, k)

	_, err = ParseKind("Blender")
	assert.True(t, errors.Is(err, ErrUnknownRig))

	_, err = LookupName("UE4")
	assert.NoError(t, err)
}

func TestJointIndex(t *testing.T) {
	d, _ := Lookup(Mixamo)
	assert.Equal(t, 0, d.JointIndex("Hips"))
	assert.Equal(t, 37, d.JointIndex("RightHand"))
	assert.Equal(t, -1, d.JointIndex("Tail"))
}

func TestRegisterRemap(t *testing.T) {
	d, _ := Lookup(Unity)
	assert.Error(t, RegisterRemap("short", []mgl64.Quat{mgl64.QuatIdent()}, d.Len()))

	table := make([]mgl64.Quat, d.Len())
	for i := range table {
		table[i] = mgl64.Quat{W: 2}
	}
	require.NoError(t, RegisterRemap("doubled", table, d.Len()))
	r, ok := LookupRemap("doubled")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r[5].W, 1e-12)
	assert.Contains(t, RemapNames(), "Unity_to_Mixamo")

	builtin, ok := LookupRemap("Unity_to_Mixamo")
	require.True(t, ok)
	assert.Len(t, builtin, d.Len())
}

func TestMapSkeleton(t *testing.T) {
	s := NewMapSkeleton("Hips", "", "Spine")
	assert.True(t, s.HasBone("Hips"))
	assert.False(t, s.HasBone(""))
	s.SetLocalRotation("Head", mgl64.QuatRotate(1, mgl64.Vec3{1, 0, 0}))
	assert.False(t, s.HasBone("Head"))
	if diff := cmp.Diff([]string{"Hips", "Spine"}, s.Bones()); diff != "" {
		t.Errorf("Bones() mismatch (-want +got):\n%s", diff)
	}
}
