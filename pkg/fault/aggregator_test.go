package fault

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/vessel"
)

type fakeSensors struct {
	avail [numSubsystems]Availability
}

func (s *fakeSensors) Availability(sub Subsystem) Availability { return s.avail[sub] }

func (s *fakeSensors) up(sub Subsystem, tick uint32) {
	s.avail[sub] = Availability{Enabled: true, Active: true, LastActive: tick}
}

type recordingActuators struct {
	commands []string
}

func (a *recordingActuators) TransmitCommand(rudder float32, throttle int16, force bool) {
	a.commands = append(a.commands, fmt.Sprintf("%.4f/%d/%v", rudder, throttle, force))
}

type recordingNotifier struct {
	texts      []string
	severities []byte
}

func (n *recordingNotifier) Notify(severity byte, text string) {
	n.severities = append(n.severities, severity)
	n.texts = append(n.texts, text)
}

type faultHarness struct {
	sensors   *fakeSensors
	actuators *recordingActuators
	notifier  *recordingNotifier
	agg       *Aggregator
	tick      uint32
}

func newFaultHarness() *faultHarness {
	h := &faultHarness{
		sensors:   &fakeSensors{},
		actuators: &recordingActuators{},
		notifier:  &recordingNotifier{},
	}
	for s := Subsystem(0); s < numSubsystems; s++ {
		h.sensors.up(s, 0)
	}
	// The RC operator is idle unless a test says otherwise.
	h.sensors.avail[RCNode].Active = false
	h.agg = &Aggregator{
		Sensors:  h.sensors,
		Commands: &vessel.CommandMux{Actuators: h.actuators},
		Notifier: h.notifier,
	}
	return h
}

// run advances n ticks, keeping every active subsystem's LastActive
// fresh so watchdogs only fire when a test withholds the refresh.
func (h *faultHarness) run(n int) {
	for i := 0; i < n; i++ {
		for s := Subsystem(0); s < numSubsystems; s++ {
			if h.sensors.avail[s].Active {
				h.sensors.avail[s].LastActive = h.tick
			}
		}
		h.agg.Update(h.tick)
		h.tick++
	}
}

// settle runs past the startup hold so tests start from a clean mask.
func (h *faultHarness) settle() {
	h.run(DefaultStartupHold + 1)
}

func TestStartupHold(t *testing.T) {
	h := newFaultHarness()
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitStartup))
	require.Equal(t, wire.StateBoot, h.agg.SystemState())

	h.run(DefaultStartupHold - 1)
	require.True(t, h.agg.Errors().Has(BitStartup))

	h.run(1)
	require.False(t, h.agg.Errors().Has(BitStartup))
	require.Equal(t, wire.StateActive, h.agg.SystemState())
}

func TestGPSInvalidEdges(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	h.sensors.avail[GPS].Active = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitGPSInvalid))

	// The bit is sticky: staying inactive does not re-set or toggle it.
	h.run(5)
	require.True(t, h.agg.Errors().Has(BitGPSInvalid))

	h.sensors.avail[GPS].Active = true
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitGPSInvalid))
}

func TestGPSDisconnectionWatchdog(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	h.sensors.avail[GPS].Active = false
	h.run(DefaultGPSTimeout - 1)
	require.False(t, h.agg.Errors().Has(BitGPSDisconnected))

	h.run(1)
	require.True(t, h.agg.Errors().Has(BitGPSDisconnected))

	h.sensors.avail[GPS].Active = true
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitGPSDisconnected))
}

func TestGCSWatchdog(t *testing.T) {
	h := newFaultHarness()
	var lastContact uint32
	h.agg.LastGCSContact = func() uint32 { return lastContact }
	h.settle()
	require.False(t, h.agg.Errors().Has(BitGCSDisconnected))

	h.run(int(DefaultGCSTimeout))
	require.True(t, h.agg.Errors().Has(BitGCSDisconnected))

	lastContact = h.tick
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitGCSDisconnected))
}

func TestRudderClearWaitsForEnabled(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	h.sensors.avail[Rudder].Active = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitRudderError))

	// Reactivating while the rudder still reports disabled must not
	// clear the error.
	h.sensors.avail[Rudder].Enabled = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitRudderDisconnected))
	h.sensors.avail[Rudder].Active = true
	h.run(3)
	require.True(t, h.agg.Errors().Has(BitRudderError))

	h.sensors.avail[Rudder].Enabled = true
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitRudderError))
	require.False(t, h.agg.Errors().Has(BitRudderDisconnected))
}

func TestEStopOnPropulsionLoss(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	h.sensors.avail[Propulsion].Enabled = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitEStop))

	h.sensors.avail[Propulsion].Enabled = true
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitEStop))
}

func TestManualOverrideRetransmitsOnRelease(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	h.sensors.avail[RCNode].Active = true
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitManualOverride))

	sent := len(h.actuators.commands)
	h.sensors.avail[RCNode].Active = false
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitManualOverride))
	require.Len(t, h.actuators.commands, sent+1, "release must retransmit the latest command")
}

func TestRCDisconnectIsStatusOnly(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	h.sensors.avail[RCNode].Enabled = false
	h.run(1)
	require.False(t, h.agg.Errors().Any())
	require.NotZero(t, h.agg.Status()&StatusRCDisconnected)

	h.sensors.avail[RCNode].Enabled = true
	h.run(1)
	require.Zero(t, h.agg.Status()&StatusRCDisconnected)
}

func TestCalibrationBits(t *testing.T) {
	h := newFaultHarness()
	calibrating, calibrated := false, true
	h.agg.Calibration = func() (bool, bool) { return calibrating, calibrated }
	h.settle()
	require.False(t, h.agg.Errors().Any())

	calibrating, calibrated = true, false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitCalibrating))
	require.True(t, h.agg.Errors().Has(BitRudderUncalibrated))
	require.Equal(t, wire.StateCalibrating, h.agg.SystemState())

	calibrating = false
	calibrated = true
	h.run(1)
	require.False(t, h.agg.Errors().Has(BitCalibrating))
	require.False(t, h.agg.Errors().Has(BitRudderUncalibrated))
}

func TestReturnToBaseEngagesOnce(t *testing.T) {
	h := newFaultHarness()
	h.settle()
	require.True(t, h.agg.SetAutonomous(true))

	h.sensors.avail[GPS].Active = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitRTB))
	require.Equal(t, []byte{wire.SeverityEmergency}, h.notifier.severities)
	require.Equal(t, "Enacting return-to-base protocol (reason 0x0002)", h.notifier.texts[0])
	// The fail-safe forces a neutral command out.
	require.Equal(t, "0.0000/0/true", h.actuators.commands[len(h.actuators.commands)-1])

	// Further errors while latched do not re-announce.
	h.sensors.avail[IMU].Enabled = false
	h.run(10)
	require.Len(t, h.notifier.texts, 1)
}

func TestErrorChangeWhileLatchedReforcesNeutral(t *testing.T) {
	h := newFaultHarness()
	h.settle()
	require.True(t, h.agg.SetAutonomous(true))

	h.sensors.avail[GPS].Active = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitRTB))
	sent := len(h.actuators.commands)

	// A quiet mask does not retransmit the stop command.
	h.run(10)
	require.Len(t, h.actuators.commands, sent)

	// A drive subsystem cycling off must receive it again.
	h.sensors.avail[IMU].Enabled = false
	h.run(1)
	require.Len(t, h.actuators.commands, sent+1)
	require.Equal(t, "0.0000/0/true", h.actuators.commands[sent])

	// And again when it comes back, still without re-announcing.
	h.sensors.avail[IMU].Enabled = true
	h.run(1)
	require.Len(t, h.actuators.commands, sent+2)
	require.Len(t, h.notifier.texts, 1)
}

func TestLeavingAutonomousReleasesRTB(t *testing.T) {
	h := newFaultHarness()
	h.settle()
	require.True(t, h.agg.SetAutonomous(true))

	h.sensors.avail[GPS].Active = false
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitRTB))

	require.True(t, h.agg.SetAutonomous(false))
	require.False(t, h.agg.Errors().Has(BitRTB))
	require.Equal(t, "Exiting return-to-base protocol", h.notifier.texts[len(h.notifier.texts)-1])
	require.Equal(t, wire.SeverityNotice, h.notifier.severities[len(h.notifier.severities)-1])

	// Re-entering is refused while the underlying error persists.
	require.False(t, h.agg.SetAutonomous(true))
	require.False(t, h.agg.Autonomous())

	h.sensors.avail[GPS].Active = true
	h.run(1)
	require.True(t, h.agg.SetAutonomous(true))
}

func TestSetAutonomousReportsChange(t *testing.T) {
	h := newFaultHarness()
	h.settle()

	require.False(t, h.agg.SetAutonomous(false))
	require.True(t, h.agg.SetAutonomous(true))
	require.False(t, h.agg.SetAutonomous(true))
	require.True(t, h.agg.SetAutonomous(false))
}

func TestClearNavStateOnFirstError(t *testing.T) {
	h := newFaultHarness()
	cleared := 0
	h.agg.ClearNavState = func() { cleared++ }
	h.settle()
	cleared = 0 // the startup hold itself trips the hook once

	h.sensors.avail[IMU].Enabled = false
	h.run(1)
	require.Equal(t, 1, cleared)

	// Piling on a second error is not a healthy-to-errored transition.
	h.sensors.avail[WaterSpeed].Enabled = false
	h.run(1)
	require.Equal(t, 1, cleared)
}

func TestManualOverrideDoesNotTriggerRTB(t *testing.T) {
	h := newFaultHarness()
	h.settle()
	require.True(t, h.agg.SetAutonomous(true))

	h.sensors.avail[RCNode].Active = true
	h.run(1)
	require.True(t, h.agg.Errors().Has(BitManualOverride))
	require.False(t, h.agg.Errors().Has(BitRTB))
	require.Empty(t, h.notifier.texts)
}
