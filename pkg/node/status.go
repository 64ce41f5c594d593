package node

import (
	"fmt"
	"math"
	"strconv"
)

// audioStatus renders the periodic spoken status line: crosstrack error
// to one decimal place and whole-meter waypoint distance. Values that
// do not fit the four-digit field render as "large"; the transmit path
// truncates to the wire's fixed text width.
func audioStatus(crosstrack, distance float64) string {
	return fmt.Sprintf("#crosstrack %s, waypoint distance %s",
		formatDeci(crosstrack), formatWhole(distance))
}

func formatDeci(v float64) string {
	v = math.Abs(v)
	if math.IsNaN(v) || v >= 10000 {
		return "large"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatWhole(v float64) string {
	if math.IsNaN(v) || v < 0 || v >= 10000 {
		return "large"
	}
	return strconv.Itoa(int(v))
}

// channelUsageStatus renders the boot-time channel load announcement.
func channelUsageStatus(pct int) string {
	return fmt.Sprintf("Groundstation channel usage at %3d%%", pct)
}
