package vessel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMissionListBounds(t *testing.T) {
	l := NewMissionList(2)
	require.Equal(t, -1, l.Current())

	size, ok := l.Append(Waypoint{North: 1})
	require.True(t, ok)
	require.Equal(t, 1, size)
	require.Equal(t, 0, l.Current())

	_, ok = l.Append(Waypoint{North: 2})
	require.True(t, ok)
	_, ok = l.Append(Waypoint{North: 3})
	require.False(t, ok)
	require.Equal(t, 2, l.Count())

	l.SetCurrent(5) // out of range, ignored
	require.Equal(t, 0, l.Current())
	l.SetCurrent(1)
	require.Equal(t, 1, l.Current())

	l.Clear()
	require.Zero(t, l.Count())
	require.Equal(t, -1, l.Current())
}

func TestConditionThrottle(t *testing.T) {
	testCases := []struct {
		name   string
		in     int16
		expect int16
	}{
		{name: "deadband positive", in: 39, expect: 0},
		{name: "deadband negative", in: -39, expect: 0},
		{name: "scaled", in: 1000, expect: 700},
		{name: "scaled reverse", in: -1000, expect: -700},
		{name: "just past deadband", in: 40, expect: 28},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, ConditionThrottle(tc.in))
		})
	}
}

func TestRudderFilterBins(t *testing.T) {
	var f rudderFilter

	// Holding a large command walks the filter up one bin per sample.
	var out float32
	for i := 0; i < 32; i++ {
		out = f.process(maxRudderRad)
	}
	require.InDelta(t, maxRudderRad, float64(out), 1e-3)

	// Releasing the stick walks it back to center.
	for i := 0; i < 32; i++ {
		out = f.process(0)
	}
	require.Zero(t, out)

	// Sign is preserved.
	for i := 0; i < 32; i++ {
		out = f.process(-maxRudderRad)
	}
	require.InDelta(t, -maxRudderRad, float64(out), 1e-3)
}

func TestLegMath(t *testing.T) {
	leg := Leg{ToNorth: 3, ToEast: 4}
	require.Equal(t, uint16(5), leg.DistanceToWaypoint())

	// Vessel sitting 1m east of a due-north leg.
	leg = Leg{FromNorth: 0, FromEast: 0, ToNorth: 10, ToEast: 0, PosNorth: 5, PosEast: 1}
	require.InDelta(t, 1, float64(leg.CrossTrackError()), 1e-6)

	degenerate := Leg{}
	require.True(t, math.IsNaN(float64(degenerate.CrossTrackError())))

	// Waypoint due east of the vessel, heading north: bearing +90.
	leg = Leg{ToNorth: 0, ToEast: 10}
	require.Equal(t, int16(90), leg.BearingToWaypoint())
}

type recordingActuators struct {
	rudder   []float32
	throttle []int16
	forced   []bool
}

func (a *recordingActuators) TransmitCommand(r float32, tc int16, force bool) {
	a.rudder = append(a.rudder, r)
	a.throttle = append(a.throttle, tc)
	a.forced = append(a.forced, force)
}

func TestCommandMux(t *testing.T) {
	rec := &recordingActuators{}
	mux := &CommandMux{Actuators: rec}
	mux.SetManual(0, 1000)

	// Autonomous with no errors transmits the autonomous command.
	mux.Output(0.5, 0, true, false, false, false)
	require.Equal(t, []float32{0.5}, rec.rudder)
	require.Equal(t, []int16{700}, rec.throttle)

	// Any error suppresses autonomous output entirely.
	mux.Output(0.5, 0, true, true, false, false)
	require.Len(t, rec.rudder, 1)

	// Manual mode with an active override stays quiet.
	mux.Output(0, 0, false, false, true, false)
	require.Len(t, rec.rudder, 1)

	// Relinquishing the override forces the autonomous command out.
	mux.Retransmit()
	require.Len(t, rec.rudder, 2)
	require.True(t, rec.forced[1])
}
