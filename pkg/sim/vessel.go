// Package sim provides a simulated vessel: a kinematic boat in the
// local North-East plane standing in for the sensor and actuator buses.
// The daemon uses it when no hardware is attached, which makes the full
// command path exercisable from a ground station alone.
package sim

import (
	"math"

	"github.com/seaslug/helm.go/pkg/fault"
	"github.com/seaslug/helm.go/pkg/gcs/param"
	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/vessel"
)

// Kinematic constants, per control tick (10ms).
const (
	tickSeconds   = 0.01
	maxSpeed      = 2.5  // m/s at full throttle
	turnGain      = 0.8  // heading rate per rudder radian at 1 m/s
	throttleScale = 1024 // full throttle command magnitude
)

// Vessel is the simulated boat. It implements the sensor snapshot,
// actuator sink, controller and navigation collaborators of the node.
// Everything runs on the node's loop goroutine.
type Vessel struct {
	mission *vessel.MissionList

	north, east float64
	course      float64 // radians east of north
	speed       float64

	rudder   float32
	throttle int16

	headingKP float32
	wpRadius  float32
	cruise    float32

	tick uint32
	leg  vessel.Leg
}

// New creates a vessel at the local origin, heading north.
func New() *Vessel {
	return &Vessel{headingKP: 1.2, wpRadius: 3, cruise: 0.6}
}

// Bind attaches the onboard mission list the controller tracks.
func (v *Vessel) Bind(mission *vessel.MissionList) { v.mission = mission }

// Registry exposes the tunable guidance parameters.
func (v *Vessel) Registry() param.Registry {
	return param.Registry{
		{Name: "HEADING_KP",
			Get: func() float32 { return v.headingKP },
			Set: func(f float32) { v.headingKP = f }},
		{Name: "WP_RADIUS",
			Get: func() float32 { return v.wpRadius },
			Set: func(f float32) { v.wpRadius = f }},
		{Name: "CRUISE_THROTTLE",
			Get: func() float32 { return v.cruise },
			Set: func(f float32) { v.cruise = f }},
	}
}

// Availability reports every simulated subsystem as up. The RC node is
// visible but never overriding.
func (v *Vessel) Availability(sys fault.Subsystem) fault.Availability {
	a := fault.Availability{Enabled: true, Active: true, LastActive: v.tick}
	if sys == fault.RCNode {
		a.Active = false
	}
	return a
}

// TransmitCommand latches the actuator command the mux selected.
func (v *Vessel) TransmitCommand(rudder float32, throttle int16, force bool) {
	v.rudder = rudder
	v.throttle = throttle
}

// Step advances the boat one tick and runs the waypoint controller.
// The previous tick's actuator command drives the physics, mirroring a
// real actuator bus round trip.
func (v *Vessel) Step(reset bool) (rudder float32, throttle int16, reached, current int) {
	v.tick++
	v.advance()

	reached, current = -1, -1
	if reset || v.mission == nil {
		return 0, 0, reached, current
	}
	cur := v.mission.Current()
	wp, ok := v.mission.Get(cur)
	if !ok {
		return 0, 0, reached, current
	}
	v.leg = v.legTo(cur, wp)

	if float32(v.leg.DistanceToWaypoint()) <= v.wpRadius {
		reached = cur
		if next := cur + 1; next < v.mission.Count() && wp.Autocontinue {
			v.mission.SetCurrent(next)
			current = next
		}
	}

	bearing := float64(v.leg.BearingToWaypoint()) * math.Pi / 180
	rudder = v.headingKP * float32(bearing)
	if rudder > 1 {
		rudder = 1
	} else if rudder < -1 {
		rudder = -1
	}
	return rudder, int16(v.cruise * throttleScale), reached, current
}

// advance integrates the kinematics for one tick.
func (v *Vessel) advance() {
	v.speed = maxSpeed * float64(v.throttle) / throttleScale
	v.course += turnGain * float64(v.rudder) * v.speed * tickSeconds
	if v.course > math.Pi {
		v.course -= 2 * math.Pi
	} else if v.course < -math.Pi {
		v.course += 2 * math.Pi
	}
	v.north += v.speed * math.Cos(v.course) * tickSeconds
	v.east += v.speed * math.Sin(v.course) * tickSeconds
}

func (v *Vessel) legTo(cur int, wp vessel.Waypoint) vessel.Leg {
	l := vessel.Leg{
		ToNorth: wp.North, ToEast: wp.East,
		PosNorth: float32(v.north), PosEast: float32(v.east),
		Course: float32(v.course),
	}
	if prev, ok := v.mission.Get(cur - 1); ok {
		l.FromNorth, l.FromEast = prev.North, prev.East
	}
	return l
}

// CrossTrack reports the perpendicular distance to the tracked leg.
func (v *Vessel) CrossTrack() float64 { return float64(v.leg.CrossTrackError()) }

// WaypointDistance reports the straight-line distance to the approached
// waypoint.
func (v *Vessel) WaypointDistance() float64 { return float64(v.leg.DistanceToWaypoint()) }

// Reset zeroes the motion state. The fault aggregator calls it on the
// first entry into an errored state.
func (v *Vessel) Reset() {
	v.speed = 0
	v.leg = vessel.Leg{}
}

// Power reports a healthy electrical bus.
func (v *Vessel) Power() wire.SysStatus {
	return wire.SysStatus{VoltageMV: 12600, CurrentCA: 450}
}

// Fix reports a locked solution at the simulated position, rendered on
// a flat-earth approximation around the local origin.
func (v *Vessel) Fix() wire.GPSRaw {
	const originLat, originLon = 47.6420000, -122.3370000
	const metersPerDegLat = 111132.0
	metersPerDegLon := metersPerDegLat * math.Cos(originLat*math.Pi/180)

	courseDeg := v.course * 180 / math.Pi
	if courseDeg < 0 {
		courseDeg += 360
	}
	return wire.GPSRaw{
		Fix:        3,
		Lat:        int32((originLat + v.north/metersPerDegLat) * 1e7),
		Lon:        int32((originLon + v.east/metersPerDegLon) * 1e7),
		SpeedCms:   uint16(math.Abs(v.speed) * 100),
		CourseCdeg: uint16(courseDeg * 100),
		Satellites: 9,
	}
}
