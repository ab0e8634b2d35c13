package pose

// Observer is a consumer-side edge detector. Each consumer owns one and asks
// it, once per tick, whether an event fired or a scalar changed since the last
// time it looked. Because the snapshot carries counters, transitions that
// happen between two polls are still reported once.
type Observer struct {
	generation uint64
	counts     [NumEvents]uint32
	seen       Transitions
}

func (o *Observer) sync(s *Snapshot) {
	if s.SessionGeneration != o.generation {
		o.generation = s.SessionGeneration
		o.counts = [NumEvents]uint32{}
	}
}

// CheckTriggerAndUpdate reports whether the event count for k differs from
// the last observed count, then records it. Counts restart from zero on a new
// session.
func (o *Observer) CheckTriggerAndUpdate(k EventKind, s *Snapshot) bool {
	if s == nil || k < 0 || int(k) >= NumEvents {
		return false
	}
	o.sync(s)
	c := s.Events[k].Count
	fired := c != o.counts[k]
	o.counts[k] = c
	return fired
}

// ClearEventTriggers marks every event as observed.
func (o *Observer) ClearEventTriggers(s *Snapshot) {
	if s == nil {
		return
	}
	o.sync(s)
	for k := range o.counts {
		o.counts[k] = s.Events[k].Count
	}
}

func changed(seen *uint64, now uint64) bool {
	c := *seen != now
	*seen = now
	return c
}

func (o *Observer) CrouchChanged(s *Snapshot) bool {
	return s != nil && changed(&o.seen.Crouch, s.Transitions.Crouch)
}

func (o *Observer) StableFootChanged(s *Snapshot) bool {
	return s != nil && changed(&o.seen.StableFoot, s.Transitions.StableFoot)
}

func (o *Observer) HandZoneLChanged(s *Snapshot) bool {
	return s != nil && changed(&o.seen.HandZoneL, s.Transitions.HandZoneL)
}

func (o *Observer) HandZoneRChanged(s *Snapshot) bool {
	return s != nil && changed(&o.seen.HandZoneR, s.Transitions.HandZoneR)
}

func (o *Observer) VisibilityChanged(s *Snapshot) bool {
	return s != nil && changed(&o.seen.Visibility, s.Transitions.Visibility)
}
