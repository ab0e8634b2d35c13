package rig

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Skeleton is a target hierarchy that local rotations are written onto.
type Skeleton interface {
	HasBone(name string) bool
	SetLocalRotation(name string, q mgl64.Quat)
}

// MapSkeleton is an in-memory Skeleton holding the bones it was created with.
type MapSkeleton struct {
	mu    sync.RWMutex
	bones map[string]mgl64.Quat
}

// NewMapSkeleton creates a skeleton with the given bones at identity.
func NewMapSkeleton(names ...string) *MapSkeleton {
	s := &MapSkeleton{bones: make(map[string]mgl64.Quat, len(names))}
	for _, n := range names {
		if n != "" {
			s.bones[n] = mgl64.QuatIdent()
		}
	}
	return s
}

// NewMapSkeletonFor creates a skeleton carrying every bone and extra bone of desc.
func NewMapSkeletonFor(desc *Descriptor) *MapSkeleton {
	names := make([]string, 0, desc.Len())
	for j := 0; j < desc.Len(); j++ {
		names = append(names, desc.BoneName(j))
	}
	return NewMapSkeleton(names...)
}

func (s *MapSkeleton) HasBone(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bones[name]
	return ok
}

func (s *MapSkeleton) SetLocalRotation(name string, q mgl64.Quat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bones[name]; ok {
		s.bones[name] = q
	}
}

// LocalRotation returns the current rotation of a bone.
func (s *MapSkeleton) LocalRotation(name string) (mgl64.Quat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.bones[name]
	return q, ok
}

// Bones lists bone names in sorted order.
func (s *MapSkeleton) Bones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bones))
	for n := range s.bones {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
