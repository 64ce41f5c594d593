package vessel

import "math"

// Actuators transmits a rudder angle (radians, positive starboard) and a
// throttle command (-1000..1000) to the actuator drivers. force requests
// retransmission even if the command is unchanged.
type Actuators interface {
	TransmitCommand(rudder float32, throttle int16, force bool)
}

// CommandMux tracks the latest command from every source and decides
// which one drives the actuators. It mirrors the single-threaded tick
// semantics: all methods are called from the control loop only.
type CommandMux struct {
	Actuators Actuators

	autoRudder     float32
	autoThrottle   int16
	manualRudder   float32
	manualThrottle int16

	rudderFilter rudderFilter
}

// SetManual conditions and latches operator input. rudder is the raw
// stick value (-1000..1000), throttle likewise.
func (m *CommandMux) SetManual(rudder, throttle int16) {
	m.manualRudder = m.rudderFilter.process(float32(rudder) * manualRudderScale)
	m.manualThrottle = ConditionThrottle(throttle)
}

// Output transmits the command selected by the current mode and fault
// state. Autonomous commands are suppressed whenever any error bit is
// set; manual commands are suppressed during a manual override.
func (m *CommandMux) Output(autoRudder float32, autoThrottle int16, autonomous bool, anyError, override, force bool) {
	m.autoRudder = autoRudder
	// No control loop closes around throttle yet; hold the manual value.
	m.autoThrottle = m.manualThrottle
	_ = autoThrottle

	if autonomous && !anyError {
		m.Actuators.TransmitCommand(m.autoRudder, m.autoThrottle, force)
	} else if !autonomous && !override {
		m.Actuators.TransmitCommand(m.manualRudder, m.manualThrottle, force)
	}
}

// Retransmit forces the latest autonomous command out, used when a
// manual override is relinquished so the actuators resynchronize.
func (m *CommandMux) Retransmit() {
	m.Actuators.TransmitCommand(m.autoRudder, m.autoThrottle, true)
}

// Neutral latches and forces out a rudder-centered, throttle-idle
// command. The fail-safe path uses it to bring the vessel to a stop.
func (m *CommandMux) Neutral() {
	m.autoRudder = 0
	m.autoThrottle = 0
	m.manualRudder = 0
	m.manualThrottle = 0
	m.Actuators.TransmitCommand(0, 0, true)
}

// Commanded returns the command pair currently driving the vessel.
func (m *CommandMux) Commanded(autonomous bool, anyError, override bool) (float32, int16) {
	switch {
	case override:
		return 0, 0
	case anyError:
		return 0, 0
	case autonomous:
		return m.autoRudder, m.autoThrottle
	default:
		return m.manualRudder, m.manualThrottle
	}
}

// manualRudderScale converts the -1000..1000 stick range to radians,
// roughly +-45 degrees.
const manualRudderScale = 7.854e-4

// maxRudderRad caps rudder commands at 45 degrees.
const maxRudderRad = 0.7854

// Rudder bins in degrees: 0, 6, 12, 18, 23, 28, 33, 39, 45, with
// hysteresis on the transitions so small stick jitter does not hunt
// between adjacent bins.
var (
	rudderTransitions = [...]float32{0, rad(6), rad(11), rad(16), rad(21), rad(26), rad(31), rad(36), rad(40)}
	rudderBinAngles   = [...]float32{0, rad(6), rad(12), rad(18), rad(23), rad(28), rad(33), rad(39), rad(45)}
)

const (
	rudderUpHysteresis   = 0.0349 // ~2 degrees
	rudderDownHysteresis = 0.0436 // ~2.5 degrees
)

func rad(deg float64) float32 {
	return float32(deg * math.Pi / 180)
}

// rudderFilter averages successive samples and snaps them to the bin
// table with hysteresis.
type rudderFilter struct {
	bin  int
	last float32
}

func (f *rudderFilter) process(rc float32) float32 {
	if rc > maxRudderRad {
		rc = maxRudderRad
	} else if rc < -maxRudderRad {
		rc = -maxRudderRad
	}

	rc = (rc + f.last) / 2
	f.last = rc

	mag := rc
	if mag < 0 {
		mag = -mag
	}
	if f.bin+1 < len(rudderTransitions) && mag > rudderTransitions[f.bin+1]+rudderUpHysteresis {
		f.bin++
	}
	if f.bin > 0 && mag < rudderTransitions[f.bin]-rudderDownHysteresis {
		f.bin--
	}

	if rc < 0 {
		return -rudderBinAngles[f.bin]
	}
	return rudderBinAngles[f.bin]
}

// ConditionThrottle applies an 8% deadband and scales the command to
// 70%, leaving headroom for the operator.
func ConditionThrottle(tc int16) int16 {
	if tc > -40 && tc < 40 {
		tc = 0
	}
	return tc * 7 / 10
}
