package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seaslug/helm.go/pkg/fault"
	"github.com/seaslug/helm.go/pkg/vessel"
)

// drive runs the command-to-physics round trip for n ticks the way the
// node loop does: controller output feeds the actuator sink.
func drive(v *Vessel, n int) (reached, current int) {
	reached, current = -1, -1
	for i := 0; i < n; i++ {
		rudder, throttle, r, c := v.Step(false)
		v.TransmitCommand(rudder, throttle, false)
		if r >= 0 {
			reached = r
		}
		if c >= 0 {
			current = c
		}
	}
	return reached, current
}

func TestReachesWaypointAhead(t *testing.T) {
	v := New()
	m := vessel.NewMissionList(4)
	m.Append(vessel.Waypoint{North: 20, Autocontinue: true})
	v.Bind(m)

	// 20m at up to 1.5m/s cruise needs well under 60s.
	reached, _ := drive(v, 6000)
	require.Equal(t, 0, reached)
	require.InDelta(t, 20, v.north, float64(v.wpRadius)+1)
}

func TestAdvancesToNextWaypoint(t *testing.T) {
	v := New()
	m := vessel.NewMissionList(4)
	m.Append(vessel.Waypoint{North: 15, Autocontinue: true})
	m.Append(vessel.Waypoint{North: 15, East: 15, Autocontinue: true})
	v.Bind(m)

	_, current := drive(v, 6000)
	require.Equal(t, 1, current)
	require.Equal(t, 1, m.Current())
}

func TestSteersBackOnCourse(t *testing.T) {
	v := New()
	v.east = 5 // displaced off the leg
	m := vessel.NewMissionList(4)
	m.Append(vessel.Waypoint{North: 50, Autocontinue: true})
	v.Bind(m)

	drive(v, 3000)
	require.True(t, v.CrossTrack() < 5.0, "crosstrack %f", v.CrossTrack())
}

func TestResetStopsTheBoat(t *testing.T) {
	v := New()
	m := vessel.NewMissionList(4)
	m.Append(vessel.Waypoint{North: 50})
	v.Bind(m)
	drive(v, 500)
	require.NotZero(t, v.speed)

	v.Reset()
	require.Zero(t, v.speed)
	rudder, throttle, _, _ := v.Step(true)
	require.Zero(t, rudder)
	require.Zero(t, throttle)
}

func TestAvailabilityAllUpExceptRCActive(t *testing.T) {
	v := New()
	v.Step(false)
	for sys := fault.GPS; sys <= fault.Rudder; sys++ {
		a := v.Availability(sys)
		require.True(t, a.Enabled)
		require.True(t, a.Active)
		require.Equal(t, uint32(1), a.LastActive)
	}
	rc := v.Availability(fault.RCNode)
	require.True(t, rc.Enabled)
	require.False(t, rc.Active)
}

func TestRegistryRoundTrip(t *testing.T) {
	v := New()
	reg := v.Registry()
	require.Equal(t, 3, len(reg))
	reg[0].Set(2.5)
	require.Equal(t, float32(2.5), v.headingKP)
	require.Equal(t, float32(2.5), reg[0].Get())
}

func TestFixTracksPosition(t *testing.T) {
	v := New()
	before := v.Fix()
	v.north = 111.132 // one millidegree of latitude
	after := v.Fix()
	require.Equal(t, byte(3), after.Fix)
	require.InDelta(t, 10000, after.Lat-before.Lat, 1)
}
