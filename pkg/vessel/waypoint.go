package vessel

import "math"

// Leg is the mission segment currently being tracked: the previous
// waypoint, the one being approached, and the vessel position, all in
// the local North-East frame.
type Leg struct {
	FromNorth, FromEast float32
	ToNorth, ToEast     float32
	PosNorth, PosEast   float32
	Course              float32 // radians east of north
}

// BearingToWaypoint returns the relative bearing (degrees) from the
// vessel's course to the approached waypoint.
func (l Leg) BearingToWaypoint() int16 {
	distNorth := float64(l.ToNorth - l.PosNorth)
	distEast := float64(l.ToEast - l.PosEast)
	abs := math.Atan2(distEast, distNorth)
	return int16((abs - float64(l.Course)) * 180 / math.Pi)
}

// DistanceToWaypoint returns the straight-line distance (meters) to the
// approached waypoint.
func (l Leg) DistanceToWaypoint() uint16 {
	distNorth := float64(l.ToNorth - l.PosNorth)
	distEast := float64(l.ToEast - l.PosEast)
	return uint16(math.Sqrt(distNorth*distNorth + distEast*distEast))
}

// CrossTrackError returns the perpendicular distance (meters) from the
// vessel to the current leg, or NaN for a degenerate leg.
func (l Leg) CrossTrackError() float32 {
	p1n, p1e := float64(l.FromNorth), float64(l.FromEast)
	p2n, p2e := float64(l.ToNorth), float64(l.ToEast)
	p0n, p0e := float64(l.PosNorth), float64(l.PosEast)

	den := math.Sqrt((p2e-p1e)*(p2e-p1e) + (p2n-p1n)*(p2n-p1n))
	if den == 0 {
		return float32(math.NaN())
	}
	num := math.Abs((p2n-p1n)*p0e - (p2e-p1e)*p0n + p2e*p1n - p2n*p1e)
	return float32(num / den)
}
