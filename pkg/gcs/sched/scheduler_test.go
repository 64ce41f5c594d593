package sched

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seaslug/helm.go/pkg/gcs/wire"
)

func TestPeriodicCadence(t *testing.T) {
	s := New()
	s.Register(wire.MsgIDHeartbeat, 100)
	s.Register(wire.MsgIDStatusAndErrors, 25)

	counts := map[wire.MsgID][]int{}
	for tick := 1; tick <= 300; tick++ {
		for _, id := range s.Tick() {
			counts[id] = append(counts[id], tick)
		}
	}
	require.Equal(t, []int{100, 200, 300}, counts[wire.MsgIDHeartbeat])
	require.Equal(t, []int{25, 50, 75, 100, 125, 150, 175, 200, 225, 250, 275, 300},
		counts[wire.MsgIDStatusAndErrors])
}

func TestRegisterOverwrite(t *testing.T) {
	s := New()
	s.Register(wire.MsgIDHeartbeat, 100)
	s.Register(wire.MsgIDHeartbeat, 10)

	var ticks []wire.MsgID
	for i := 0; i < 10; i++ {
		ticks = append(ticks, s.Tick()...)
	}
	require.Equal(t, []wire.MsgID{wire.MsgIDHeartbeat}, ticks)
}

func TestTransientFIFO(t *testing.T) {
	s := New()
	s.Transient(wire.MsgIDParamValue)
	s.Transient(wire.MsgIDMissionCount)
	s.Transient(wire.MsgIDParamValue)

	require.Equal(t,
		[]wire.MsgID{wire.MsgIDParamValue, wire.MsgIDMissionCount, wire.MsgIDParamValue},
		s.Tick())
	require.Empty(t, s.Tick())
}

func TestBudgetDefersNeverDrops(t *testing.T) {
	s := New()
	s.Budget = 10
	s.SetSize(wire.MsgIDParamValue, 8)
	s.SetSize(wire.MsgIDMissionCount, 4)
	s.SetSize(wire.MsgIDStatusText, 6)

	// Saturate a single tick with three transients.
	s.Transient(wire.MsgIDParamValue)
	s.Transient(wire.MsgIDMissionCount)
	s.Transient(wire.MsgIDStatusText)
	require.Equal(t, []wire.MsgID{wire.MsgIDParamValue}, s.Tick())

	// Deferred transients drain in FIFO order on later ticks, still
	// honoring the budget.
	require.Equal(t, []wire.MsgID{wire.MsgIDMissionCount, wire.MsgIDStatusText}, s.Tick())
	require.Empty(t, s.Tick())
}

func TestOversizedMessageStillSent(t *testing.T) {
	s := New()
	s.Budget = 10
	s.SetSize(wire.MsgIDStatusText, 57)
	s.Transient(wire.MsgIDStatusText)
	require.Equal(t, []wire.MsgID{wire.MsgIDStatusText}, s.Tick())
}

func TestUsage(t *testing.T) {
	s := New()
	s.Budget = 100
	s.Tick()
	s.Record(50)
	require.Equal(t, 50, s.Usage(1))

	s.Tick()
	s.Record(100)
	require.Equal(t, 75, s.Usage(2))

	// An idle tick decays the rolling window.
	s.Tick()
	require.Equal(t, 50, s.Usage(3))
}
