package geo

import "math"

// OrientationDeg returns the direction of the polygon's dominant long axis
// as degrees from north, normalized to [0, 180). Coverage lines laid along
// this axis minimize the number of turns.
//
// Uses the principal axis of the vertex covariance: cheap, and close enough
// to the minimum bounding rectangle for field-shaped rings.
func (p *Polygon) OrientationDeg() float64 {
	var mx, my float64
	for _, v := range p.proj {
		mx += v.X
		my += v.Y
	}
	n := float64(len(p.proj))
	mx /= n
	my /= n

	var sxx, syy, sxy float64
	for _, v := range p.proj {
		dx, dy := v.X-mx, v.Y-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	// principal axis angle measured from the x axis (east)
	phi := 0.5 * math.Atan2(2*sxy, sxx-syy)

	// direction vector of the axis, converted to degrees from north
	dx, dy := math.Cos(phi), math.Sin(phi)
	deg := math.Atan2(dx, dy) * 180 / math.Pi
	for deg < 0 {
		deg += 180
	}
	for deg >= 180 {
		deg -= 180
	}
	return deg
}

// AxisVector returns the unit vector of a compass bearing in the local frame.
func AxisVector(bearingDeg float64) XY {
	rad := bearingDeg * math.Pi / 180
	return XY{X: math.Sin(rad), Y: math.Cos(rad)}
}
