package rig

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Options tune a Retargeter.
type Options struct {
	// Remap is an optional per-slot correction table; nil disables it.
	Remap Remap
	// UpperBodyOnly leaves the root and legs untouched.
	UpperBodyOnly bool
}

// Retargeter turns camera-space joint rotations into parent-relative local
// rotations for one rig. Joints skipped by an update keep their previous value.
type Retargeter struct {
	desc *Descriptor
	opts Options

	mu       sync.RWMutex
	local    []mgl64.Quat
	computed []bool
}

// NewRetargeter creates a retargeter for desc.
func NewRetargeter(desc *Descriptor, opts Options) (*Retargeter, error) {
	if desc == nil {
		return nil, fmt.Errorf("rig descriptor cannot be nil")
	}
	if opts.Remap != nil && len(opts.Remap) != desc.Len() {
		return nil, fmt.Errorf("remap has %d entries, rig %v needs %d", len(opts.Remap), desc.Kind, desc.Len())
	}
	local := make([]mgl64.Quat, desc.Len())
	for i := range local {
		local[i] = mgl64.QuatIdent()
	}
	return &Retargeter{
		desc:     desc,
		opts:     opts,
		local:    local,
		computed: make([]bool, desc.Len()),
	}, nil
}

// Descriptor returns the rig being driven.
func (r *Retargeter) Descriptor() *Descriptor {
	return r.desc
}

// SetUpperBodyOnly toggles upper-body-only mode for subsequent updates.
func (r *Retargeter) SetUpperBodyOnly(on bool) {
	r.mu.Lock()
	r.opts.UpperBodyOnly = on
	r.mu.Unlock()
}

func (r *Retargeter) remapped(rotations []mgl64.Quat, j int) mgl64.Quat {
	if r.opts.Remap == nil {
		return rotations[j]
	}
	return rotations[j].Mul(r.opts.Remap[j])
}

// Update recomputes local rotations from camera-space rotations and their
// validity flags. Slots beyond len(rotations) or len(valid) count as invalid.
// It returns the number of joints written.
func (r *Retargeter) Update(rotations []mgl64.Quat, valid []bool) int {
	n := r.desc.Len()
	isValid := func(j int) bool {
		return j < len(rotations) && j < len(valid) && valid[j]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	start := 0
	if r.opts.UpperBodyOnly {
		start = r.desc.UpperBodyStart
	}
	for j := start; j < n; j++ {
		if r.desc.BoneName(j) == "" {
			continue
		}
		if j == 0 {
			if !isValid(0) {
				continue
			}
			r.local[0] = r.desc.Base.Mul(r.remapped(rotations, 0)).Normalize()
			r.computed[0] = true
			written++
			continue
		}
		p := r.desc.Parents[j]
		if !isValid(j) || !isValid(p) {
			continue
		}
		parent := r.remapped(rotations, p)
		r.local[j] = parent.Inverse().Mul(r.remapped(rotations, j)).Normalize()
		r.computed[j] = true
		written++
	}
	return written
}

// LocalRotation returns the last computed local rotation of slot j. The
// boolean is false if the slot has never been computed.
func (r *Retargeter) LocalRotation(j int) (mgl64.Quat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if j < 0 || j >= len(r.local) {
		return mgl64.QuatIdent(), false
	}
	return r.local[j], r.computed[j]
}

// LocalRotations copies every slot's local rotation.
func (r *Retargeter) LocalRotations() ([]mgl64.Quat, []bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mgl64.Quat, len(r.local))
	ok := make([]bool, len(r.computed))
	copy(out, r.local)
	copy(ok, r.computed)
	return out, ok
}

// ApplyTo writes every computed joint onto skel whose bone exists there.
// Bones missing from skel are skipped without error. It returns the number of bones written.
func (r *Retargeter) ApplyTo(skel Skeleton) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for j, ok := range r.computed {
		if !ok {
			continue
		}
		name := r.desc.BoneName(j)
		if name == "" || !skel.HasBone(name) {
			continue
		}
		skel.SetLocalRotation(name, r.local[j])
		n++
	}
	return n
}
