package fault

// Subsystem identifies a monitored onboard link.
type Subsystem int

// Monitored subsystems.
const (
	GPS Subsystem = iota
	IMU
	WaterSpeed
	Propulsion
	Rudder
	RCNode

	numSubsystems
)

var subsystemNames = [numSubsystems]string{"gps", "imu", "water-speed", "propulsion", "rudder", "rc-node"}

func (s Subsystem) String() string {
	if s < 0 || s >= numSubsystems {
		return "unknown"
	}
	return subsystemNames[s]
}

// Availability is one subsystem's sampled link state. enabled means the
// subsystem is broadcasting at all; active means it is producing usable
// data. LastActive is the tick the subsystem was last active.
type Availability struct {
	Enabled    bool
	Active     bool
	LastActive uint32
}

// Sensors supplies the per-subsystem availability snapshot, read once
// per control tick.
type Sensors interface {
	Availability(s Subsystem) Availability
}

type signalKind int

const (
	sigEnabled signalKind = iota
	sigActive
)

// edgeRule maps one availability edge onto the bitmask. The default
// polarity is loss-oriented: a falling edge sets a bit, the matching
// rising edge clears it. setOnRise inverts that for signals where the
// rising edge is the fault (manual override).
type edgeRule struct {
	sys    Subsystem
	signal signalKind

	setOnFall   Bit
	clearOnRise bool
	// riseNeedsEnabled guards the rising edge: it only counts while the
	// subsystem also reports enabled.
	riseNeedsEnabled bool

	setOnRise   Bit
	clearOnFall bool

	statusOnFall Status

	onFall func(*Aggregator)
	onRise func(*Aggregator)
}

// edgeRules is the full edge-to-action table. Keeping the policy in one
// table makes the set/clear pairs auditable per subsystem.
var edgeRules = []edgeRule{
	// Loss of fix sets the invalid bit; any re-activation clears it.
	{sys: GPS, signal: sigActive, setOnFall: BitGPSInvalid, clearOnRise: true},

	// The rudder going inactive means an error state or an ongoing
	// calibration. The clear is guarded: re-activation only counts once
	// the rudder also reports enabled again.
	{sys: Rudder, signal: sigActive, setOnFall: BitRudderError, clearOnRise: true, riseNeedsEnabled: true},

	// Loss of the propulsion link is treated as an e-stop.
	{sys: Propulsion, signal: sigEnabled, setOnFall: BitEStop, clearOnRise: true},

	{sys: Rudder, signal: sigEnabled, setOnFall: BitRudderDisconnected, clearOnRise: true},

	{sys: IMU, signal: sigEnabled, setOnFall: BitIMUDisconnected, clearOnRise: true},

	{sys: WaterSpeed, signal: sigEnabled, setOnFall: BitWaterSpeedDisconnected, clearOnRise: true},

	// The RC node disappearing from the bus is logged as status, not as
	// an error.
	{sys: RCNode, signal: sigEnabled, statusOnFall: StatusRCDisconnected},

	// RC input going active while the node is enabled is a manual
	// override. Going inactive relinquishes control, which retransmits
	// the latest autonomous command so the actuators resynchronize.
	{sys: RCNode, signal: sigActive, setOnRise: BitManualOverride, riseNeedsEnabled: true,
		clearOnFall: true, onFall: (*Aggregator).onOverrideReleased},
}
