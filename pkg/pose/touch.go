package pose

import (
	"fmt"
	"sync"

	"github.com/open-teleop/poselink/pkg/codec"
)

// TouchSlots is the number of finger slots tracked in TouchState.
const TouchSlots = 10

// DefaultTouchQueueSize caps the transition queue when no size is configured.
const DefaultTouchQueueSize = 20

// TouchPhase is the phase of one touch.
type TouchPhase int

const (
	TouchEnded TouchPhase = iota
	TouchBegun
	TouchTouching
	TouchCancelled
)

var touchPhaseNames = [...]string{"Ended", "Begun", "Touching", "Cancelled"}

func (p TouchPhase) String() string {
	if p < 0 || int(p) >= len(touchPhaseNames) {
		return fmt.Sprintf("TouchPhase(%d)", int(p))
	}
	return touchPhaseNames[p]
}

func (p TouchPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// TouchPoint is one touch on the device screen, relative to the phone.
type TouchPoint struct {
	Index int        `json:"index"`
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Phase TouchPhase `json:"phase"`
}

// decodeTouchTransitions decodes 5-symbol touch records: an index digit
// followed by two coordinate pairs, or "==" (ended) / "=0" (cancelled).
func decodeTouchTransitions(s string) []TouchPoint {
	var out []TouchPoint
	for i := 0; i+4 < len(s); i += 5 {
		t := TouchPoint{Index: int(s[i]) - '0'}
		switch {
		case s[i+1] == '=' && s[i+2] == '=':
			t.Phase = TouchEnded
		case s[i+1] == '=' && s[i+2] == '0':
			t.Phase = TouchCancelled
		default:
			t.X = codec.DecodeSigned(s[i+1], s[i+2])
			t.Y = codec.DecodeSigned(s[i+3], s[i+4])
			t.Phase = TouchTouching
		}
		out = append(out, t)
	}
	return out
}

// applyTouchStates updates per-slot touches from 4-symbol records. A slot
// already touching stays Touching; otherwise it becomes Begun.
func applyTouchStates(states *[TouchSlots]TouchPoint, s string) {
	for i := 0; i+3 < len(s) && i/4 < TouchSlots; i += 4 {
		t := &states[i/4]
		t.Index = i / 4
		switch {
		case s[i] == '=' && s[i+1] == '=':
			t.Phase = TouchEnded
		case s[i+1] == '=' && s[i+2] == '0':
			t.Phase = TouchCancelled
		default:
			t.X = codec.DecodeSigned(s[i], s[i+1])
			t.Y = codec.DecodeSigned(s[i+2], s[i+3])
			if t.Phase == TouchTouching || t.Phase == TouchBegun {
				t.Phase = TouchTouching
			} else {
				t.Phase = TouchBegun
			}
		}
	}
}

// TouchQueue is a bounded FIFO of touch transitions shared between the
// listener and the consumer. When full the oldest entries are dropped.
type TouchQueue struct {
	mu      sync.Mutex
	items   []TouchPoint
	cap     int
	dropped uint64
}

// NewTouchQueue creates a queue holding at most size transitions.
func NewTouchQueue(size int) *TouchQueue {
	if size <= 0 {
		size = DefaultTouchQueueSize
	}
	return &TouchQueue{cap: size, items: make([]TouchPoint, 0, size)}
}

// Push appends transitions, evicting the oldest past capacity.
func (q *TouchQueue) Push(ts ...TouchPoint) {
	if len(ts) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, ts...)
	if over := len(q.items) - q.cap; over > 0 {
		q.dropped += uint64(over)
		q.items = append(q.items[:0], q.items[over:]...)
	}
}

// Drain removes and returns every queued transition in arrival order.
func (q *TouchQueue) Drain() []TouchPoint {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := make([]TouchPoint, len(q.items))
	copy(out, q.items)
	q.items = q.items[:0]
	return out
}

// Len returns the number of queued transitions.
func (q *TouchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many transitions were evicted unread.
func (q *TouchQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
