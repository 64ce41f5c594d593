package fault

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/seaslug/helm.go/pkg/gcs/wire"
	"github.com/seaslug/helm.go/pkg/vessel"
)

// Notifier pushes operator-visible status text to the ground station.
type Notifier interface {
	Notify(severity byte, text string)
}

// Watchdog and startup thresholds in control ticks.
const (
	// DefaultGPSTimeout is how long the GPS may stay inactive before it
	// counts as disconnected.
	DefaultGPSTimeout = 1000
	// DefaultGCSTimeout is how long the ground station may stay silent
	// before it counts as disconnected.
	DefaultGCSTimeout = 3000
	// DefaultStartupHold keeps the startup bit set after boot while the
	// sensors settle.
	DefaultStartupHold = 200
)

// Aggregator folds per-tick subsystem snapshots, watchdog timeouts and
// calibration state into the sticky error bitmask, and engages the
// return-to-base fail-safe when an autonomous vessel accumulates a
// qualifying error. All methods run on the control tick.
type Aggregator struct {
	Sensors  Sensors
	Commands *vessel.CommandMux
	Notifier Notifier

	// LastGCSContact returns the tick a ground-station frame was last
	// received. nil disables the GCS watchdog.
	LastGCSContact func() uint32
	// Calibration reports the rudder calibration state. nil leaves the
	// calibration bits untouched.
	Calibration func() (calibrating, calibrated bool)
	// LinkStatus mirrors transport-side error state into the status
	// flags. nil leaves them untouched.
	LinkStatus func() (txErr, rxErr bool)
	// ClearNavState fires on the healthy-to-errored transition so
	// navigation drops its tracking state instead of resuming a stale
	// solution once the errors clear.
	ClearNavState func()

	OnEnterAutonomous func()
	OnLeaveAutonomous func()

	// Zero values fall back to the defaults above.
	GPSTimeout  uint32
	GCSTimeout  uint32
	StartupHold uint32

	errors     Bitmask
	lastErrors Bitmask
	status     Status

	// edgeSeen is the per-rule signal latch. A guarded rising edge that
	// fails its guard leaves the latch down, so the edge re-arms and is
	// acted on once the guard holds.
	edgeSeen []bool
}

// Errors returns the current sticky error bitmask.
func (a *Aggregator) Errors() Bitmask { return a.errors }

// Status returns the current status flags.
func (a *Aggregator) Status() Status { return a.status }

// Autonomous reports whether the vessel is in autonomous mode.
func (a *Aggregator) Autonomous() bool { return a.status&StatusAutonomous != 0 }

// Update runs one aggregation pass for control tick now: startup hold,
// availability edges, watchdog timeouts, calibration state, link
// status, and finally the return-to-base derivation.
func (a *Aggregator) Update(now uint32) {
	if now == 0 {
		a.errors.set(BitStartup)
	} else if a.errors.Has(BitStartup) && now >= a.startupHold() {
		a.errors.clear(BitStartup)
	}

	var cur [numSubsystems]Availability
	for s := Subsystem(0); s < numSubsystems; s++ {
		cur[s] = a.Sensors.Availability(s)
	}
	a.applyEdges(&cur)
	a.applyTimeouts(now, &cur)
	a.applyCalibration()

	if a.LinkStatus != nil {
		tx, rx := a.LinkStatus()
		a.setStatus(StatusTxError, tx)
		a.setStatus(StatusRxError, rx)
	}

	changed := a.errors != a.lastErrors
	if changed {
		glog.V(1).Infof("error state %s -> %s", a.lastErrors, a.errors)
		if a.lastErrors == 0 && a.ClearNavState != nil {
			a.ClearNavState()
		}
		a.lastErrors = a.errors
	}

	// Any change with a qualifying subset outstanding re-forces the stop
	// command: a drive subsystem that cycled offline and back must
	// receive it again. The operator is told once, on the RTB latch.
	if rtb := a.errors.RTB(); changed && a.Autonomous() && rtb != 0 {
		if !a.errors.Has(BitRTB) {
			a.errors.set(BitRTB)
			a.lastErrors = a.errors
			glog.Warningf("return to base engaged, reason %s", rtb)
			a.notify(wire.SeverityEmergency, fmt.Sprintf("Enacting return-to-base protocol (reason 0x%04X)", uint16(rtb)))
		}
		a.Commands.Neutral()
	}
}

// SetAutonomous switches the drive mode. Entering autonomous mode is
// refused while any qualifying error is outstanding; leaving always
// succeeds and releases a latched return-to-base. The return value
// reports whether the mode changed.
func (a *Aggregator) SetAutonomous(on bool) bool {
	switch {
	case on && !a.Autonomous():
		if a.errors.RTB() != 0 {
			glog.Warningf("autonomous mode refused, errors %s", a.errors)
			return false
		}
		a.status |= StatusAutonomous
		glog.Info("entering autonomous mode")
		if a.OnEnterAutonomous != nil {
			a.OnEnterAutonomous()
		}
		return true
	case !on && a.Autonomous():
		a.status &^= StatusAutonomous
		glog.Info("leaving autonomous mode")
		if a.errors.Has(BitRTB) {
			a.errors.clear(BitRTB)
			a.lastErrors = a.errors
			a.notify(wire.SeverityNotice, "Exiting return-to-base protocol")
		}
		if a.OnLeaveAutonomous != nil {
			a.OnLeaveAutonomous()
		}
		return true
	}
	return false
}

// SystemState derives the heartbeat system state from the error mask.
func (a *Aggregator) SystemState() byte {
	switch {
	case a.errors.Has(BitStartup):
		return wire.StateBoot
	case a.errors.Has(BitCalibrating):
		return wire.StateCalibrating
	case a.errors.Any():
		return wire.StateStandby
	default:
		return wire.StateActive
	}
}

func (a *Aggregator) applyEdges(cur *[numSubsystems]Availability) {
	if a.edgeSeen == nil {
		a.edgeSeen = make([]bool, len(edgeRules))
	}
	for i := range edgeRules {
		r := &edgeRules[i]
		v := signalValue(cur[r.sys], r.signal)
		switch {
		case a.edgeSeen[i] && !v:
			if r.setOnFall != 0 {
				a.errors.set(r.setOnFall)
			}
			if r.clearOnFall {
				a.errors.clear(r.setOnRise)
			}
			if r.statusOnFall != 0 {
				a.status |= r.statusOnFall
			}
			if r.onFall != nil {
				r.onFall(a)
			}
			a.edgeSeen[i] = false
		case !a.edgeSeen[i] && v:
			if r.riseNeedsEnabled && !cur[r.sys].Enabled {
				// Leave the latch down so the edge fires once the
				// subsystem reports enabled again.
				continue
			}
			if r.clearOnRise {
				a.errors.clear(r.setOnFall)
			}
			if r.setOnRise != 0 {
				a.errors.set(r.setOnRise)
			}
			if r.statusOnFall != 0 {
				a.status &^= r.statusOnFall
			}
			if r.onRise != nil {
				r.onRise(a)
			}
			a.edgeSeen[i] = true
		}
	}
}

func (a *Aggregator) applyTimeouts(now uint32, cur *[numSubsystems]Availability) {
	gps := cur[GPS]
	if a.errors.Has(BitGPSDisconnected) {
		if gps.Active {
			a.errors.clear(BitGPSDisconnected)
		}
	} else if now-gps.LastActive >= a.gpsTimeout() {
		a.errors.set(BitGPSDisconnected)
	}

	if a.LastGCSContact == nil {
		return
	}
	if now-a.LastGCSContact() >= a.gcsTimeout() {
		a.errors.set(BitGCSDisconnected)
	} else {
		a.errors.clear(BitGCSDisconnected)
	}
}

func (a *Aggregator) applyCalibration() {
	if a.Calibration == nil {
		return
	}
	calibrating, calibrated := a.Calibration()
	a.setError(BitCalibrating, calibrating)
	a.setError(BitRudderUncalibrated, !calibrated)
}

// onOverrideReleased is the RC override falling-edge hook: the operator
// let go, so resynchronize the actuators with the latest command.
func (a *Aggregator) onOverrideReleased() {
	if a.Commands != nil {
		a.Commands.Retransmit()
	}
}

func (a *Aggregator) setError(b Bit, on bool) {
	if on {
		a.errors.set(b)
	} else {
		a.errors.clear(b)
	}
}

func (a *Aggregator) setStatus(s Status, on bool) {
	if on {
		a.status |= s
	} else {
		a.status &^= s
	}
}

func (a *Aggregator) notify(severity byte, text string) {
	if a.Notifier != nil {
		a.Notifier.Notify(severity, text)
	}
}

func (a *Aggregator) gpsTimeout() uint32 {
	if a.GPSTimeout != 0 {
		return a.GPSTimeout
	}
	return DefaultGPSTimeout
}

func (a *Aggregator) gcsTimeout() uint32 {
	if a.GCSTimeout != 0 {
		return a.GCSTimeout
	}
	return DefaultGCSTimeout
}

func (a *Aggregator) startupHold() uint32 {
	if a.StartupHold != 0 {
		return a.StartupHold
	}
	return DefaultStartupHold
}

func signalValue(av Availability, k signalKind) bool {
	if k == sigEnabled {
		return av.Enabled
	}
	return av.Active
}
