package pose

import "fmt"

// EventKind indexes the event slots in their compact wire order.
type EventKind int

const (
	Footstep EventKind = iota
	SidestepL
	SidestepR
	Jump
	FeetSplit
	ArmPump
	ArmFlex
	ArmGestureL
	ArmGestureR

	NumEvents = int(ArmGestureR) + 1
)

var eventNames = [NumEvents]string{
	"Footstep", "SidestepL", "SidestepR", "Jump", "FeetSplit",
	"ArmPump", "ArmFlex", "ArmGestureL", "ArmGestureR",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= NumEvents {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventNames[k]
}

// IsGesture reports whether the slot carries a gesture code instead of a magnitude.
func (k EventKind) IsGesture() bool {
	return k == ArmGestureL || k == ArmGestureR
}

// ParseEventKind maps an event name back to its kind.
func ParseEventKind(name string) (EventKind, bool) {
	for i, n := range eventNames {
		if n == name {
			return EventKind(i), true
		}
	}
	return 0, false
}

// Event is one counter slot. Count increases by one for every detection on the
// sending side; Magnitude or GestureCode describes the most recent one.
type Event struct {
	Count       uint32  `json:"count"`
	Magnitude   float64 `json:"magnitude,omitempty"`
	GestureCode uint32  `json:"gesture_code,omitempty"`
}

// Gesture decodes GestureCode.
func (e Event) Gesture() Gesture {
	return GestureFromCode(e.GestureCode)
}

// SwipeDirection returns the keypad-style direction (1-4, 6-9) of a swipe.
func (e Event) SwipeDirection() (uint32, bool) {
	if e.Gesture() != GestureSwipe {
		return 0, false
	}
	return e.GestureCode, true
}

// Events holds every slot indexed by EventKind.
type Events [NumEvents]Event

// Gesture is the recognized arm gesture.
type Gesture int

const (
	GestureNone Gesture = iota
	GestureSwipe
	GestureFlapLateral
	GestureWaxOn
	GestureWaxOff
	GestureOverheadClap
	GestureReverseOverheadClap
	GestureOverheadClapSmall
	GestureFlap
)

var gestureNames = [...]string{
	"None", "Swipe", "FlapLateral", "WaxOn", "WaxOff",
	"OverheadClap", "ReverseOverheadClap", "OverheadClapSmall", "Flap",
}

func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return fmt.Sprintf("Gesture(%d)", int(g))
	}
	return gestureNames[g]
}

// GestureFromCode maps the wire gesture code. Codes 1-9 except 5 are swipe
// directions.
func GestureFromCode(code uint32) Gesture {
	switch {
	case code >= 1 && code <= 9 && code != 5:
		return GestureSwipe
	case code == 10:
		return GestureFlapLateral
	case code == 11:
		return GestureWaxOn
	case code == 12:
		return GestureWaxOff
	case code == 50:
		return GestureOverheadClap
	case code == 51:
		return GestureReverseOverheadClap
	case code == 52:
		return GestureOverheadClapSmall
	case code == 53:
		return GestureFlap
	}
	return GestureNone
}
