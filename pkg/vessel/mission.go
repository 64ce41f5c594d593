// Package vessel holds the shared vessel-domain types: the onboard
// mission list, actuator command muxing and manual input conditioning.
package vessel

// Waypoint is one entry of the onboard mission list, in the local
// North-East-Down frame.
type Waypoint struct {
	North  float32
	East   float32
	Down   float32
	Frame  byte
	Action uint16
	Params [4]float32

	Autocontinue bool
}

// DefaultMissionCapacity bounds the onboard mission list.
const DefaultMissionCapacity = 16

// MissionList is the bounded onboard mission store. The current index is
// -1 while the list is empty.
type MissionList struct {
	items    []Waypoint
	capacity int
	current  int
}

// NewMissionList creates an empty list with the given capacity.
// A non-positive capacity falls back to DefaultMissionCapacity.
func NewMissionList(capacity int) *MissionList {
	if capacity <= 0 {
		capacity = DefaultMissionCapacity
	}
	return &MissionList{capacity: capacity, current: -1}
}

// Count returns the number of stored waypoints.
func (l *MissionList) Count() int { return len(l.items) }

// Capacity returns the maximum number of waypoints.
func (l *MissionList) Capacity() int { return l.capacity }

// Get returns the waypoint with the given sequence number.
func (l *MissionList) Get(seq int) (Waypoint, bool) {
	if seq < 0 || seq >= len(l.items) {
		return Waypoint{}, false
	}
	return l.items[seq], true
}

// Append stores a waypoint at the end of the list and returns the new
// list size, or false when the list is full.
func (l *MissionList) Append(w Waypoint) (int, bool) {
	if len(l.items) >= l.capacity {
		return len(l.items), false
	}
	l.items = append(l.items, w)
	if l.current < 0 {
		l.current = 0
	}
	return len(l.items), true
}

// Clear empties the list and invalidates the current index.
func (l *MissionList) Clear() {
	l.items = l.items[:0]
	l.current = -1
}

// Current returns the active mission index, -1 when none.
func (l *MissionList) Current() int { return l.current }

// SetCurrent selects the active mission item. Out-of-range values are
// ignored and the previous index kept.
func (l *MissionList) SetCurrent(seq int) {
	if seq >= 0 && seq < len(l.items) {
		l.current = seq
	}
}
