// Package fault aggregates subsystem health into the sticky error
// bitmask that gates autonomous operation and derives the
// return-to-base fail-safe.
package fault

import "strings"

// Bit is one sticky error flag. Bits persist until their specific
// recovery condition occurs; none auto-expires.
type Bit uint16

// Sticky error bits.
const (
	// BitStartup holds the node in reset after boot while sensors
	// settle and report in.
	BitStartup Bit = 1 << iota
	// BitGPSInvalid is set when the GPS stops producing usable fixes.
	BitGPSInvalid
	// BitGPSDisconnected is set when the GPS has been inactive past the
	// disconnection threshold.
	BitGPSDisconnected
	// BitIMUDisconnected is set when the IMU link drops.
	BitIMUDisconnected
	// BitRudderError is set when the rudder stops responding or is
	// being calibrated.
	BitRudderError
	// BitRudderUncalibrated is set while the rudder reports itself
	// uncalibrated.
	BitRudderUncalibrated
	// BitRudderDisconnected is set when the rudder node drops off the
	// bus entirely.
	BitRudderDisconnected
	// BitWaterSpeedDisconnected is set when the water-speed sensor
	// link drops.
	BitWaterSpeedDisconnected
	// BitEStop is set when the propulsion link drops; loss of that
	// link is assumed to be an emergency stop.
	BitEStop
	// BitGCSDisconnected is set when the ground station has been
	// silent past the disconnection threshold.
	BitGCSDisconnected
	// BitManualOverride is set while the RC safety operator has taken
	// the vessel over.
	BitManualOverride
	// BitRTB latches that the return-to-base fail-safe is engaged.
	BitRTB
	// BitCalibrating is set while a rudder calibration runs.
	BitCalibrating
)

// RTBMask is the subset of bits that qualifies for return-to-base when
// the vessel is autonomous. The RTB latch itself, the manual override
// (someone is driving) and the calibration flag (manual-mode activity)
// do not qualify.
const RTBMask = ^(BitRTB | BitManualOverride | BitCalibrating) & (BitCalibrating<<1 - 1)

var bitNames = map[Bit]string{
	BitStartup:                "startup-hold",
	BitGPSInvalid:             "gps-invalid",
	BitGPSDisconnected:        "gps-disconnected",
	BitIMUDisconnected:        "imu-disconnected",
	BitRudderError:            "rudder-error",
	BitRudderUncalibrated:     "rudder-uncalibrated",
	BitRudderDisconnected:     "rudder-disconnected",
	BitWaterSpeedDisconnected: "water-speed-disconnected",
	BitEStop:                  "estop",
	BitGCSDisconnected:        "gcs-disconnected",
	BitManualOverride:         "manual-override",
	BitRTB:                    "rtb",
	BitCalibrating:            "calibrating",
}

// Bitmask is the aggregate sticky error state.
type Bitmask uint16

// Has reports whether all bits in b are set.
func (m Bitmask) Has(b Bit) bool { return m&Bitmask(b) == Bitmask(b) }

// Any reports whether any error bit is set.
func (m Bitmask) Any() bool { return m != 0 }

// RTB returns the RTB-qualifying subset.
func (m Bitmask) RTB() Bitmask { return m & Bitmask(RTBMask) }

func (m *Bitmask) set(b Bit)   { *m |= Bitmask(b) }
func (m *Bitmask) clear(b Bit) { *m &^= Bitmask(b) }

// String lists the set bits by name.
func (m Bitmask) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	for b := BitStartup; b <= BitCalibrating; b <<= 1 {
		if m.Has(b) {
			names = append(names, bitNames[b])
		}
	}
	return strings.Join(names, ",")
}

// Status holds the non-sticky node status flags reported alongside the
// error bitmask.
type Status uint16

// Status flags.
const (
	// StatusAutonomous is set while the vessel drives itself.
	StatusAutonomous Status = 1 << iota
	// StatusRCDisconnected notes that the RC node stopped broadcasting.
	// Not an error and never triggers RTB, but worth having in the logs.
	StatusRCDisconnected
	// StatusTxError mirrors the transport's transmit-side error state.
	StatusTxError
	// StatusRxError mirrors the transport's receive-side error state.
	StatusRxError
)
