package geo

import (
	"errors"
	"fmt"
	"math"
)

// Typed geometry failures; zone-level callers match these with errors.Is.
var (
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrSelfIntersecting   = errors.New("self-intersecting polygon")
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// XY is a point in the polygon's local planar frame, meters.
type XY struct {
	X float64
	Y float64
}

const (
	metersPerDegLat = 111132.0
	metersPerDegLon = 111320.0
	sqmPerHectare   = 10000.0

	// Rings enclosing less than ~1 m2 are treated as zero-area.
	minRingAreaSqm = 1.0
)

// Polygon is a validated, closed ring projected onto a local planar frame
// centered on the vertex mean. All geometric queries run in that frame;
// area error stays well under 0.1% for field-sized rings.
type Polygon struct {
	ring []Point // open ring, consecutive duplicates removed
	proj []XY    // ring in the local frame, same order

	originLat float64
	originLon float64
	lonScale  float64 // meters per degree of longitude at the origin
}

// Validate checks a raw ring and returns a projected polygon.
// The ring may or may not repeat the first vertex at the end.
func Validate(ring []Point) (*Polygon, error) {
	pts := normalizeRing(ring)
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: %d distinct vertices", ErrDegenerateGeometry, len(pts))
	}

	p := &Polygon{ring: pts}
	p.project()

	if math.Abs(p.signedAreaSqm()) < minRingAreaSqm {
		return nil, fmt.Errorf("%w: zero area", ErrDegenerateGeometry)
	}
	if i, j, ok := p.findSelfIntersection(); ok {
		return nil, fmt.Errorf("%w: edges %d and %d cross", ErrSelfIntersecting, i, j)
	}
	return p, nil
}

// normalizeRing drops the closing vertex and consecutive duplicates.
func normalizeRing(ring []Point) []Point {
	out := make([]Point, 0, len(ring))
	for _, pt := range ring {
		if len(out) > 0 && samePoint(out[len(out)-1], pt) {
			continue
		}
		out = append(out, pt)
	}
	if len(out) > 1 && samePoint(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func samePoint(a, b Point) bool {
	const eps = 1e-9 // ~0.1 mm
	return math.Abs(a.Lat-b.Lat) < eps && math.Abs(a.Lon-b.Lon) < eps
}

func (p *Polygon) project() {
	var sumLat, sumLon float64
	for _, pt := range p.ring {
		sumLat += pt.Lat
		sumLon += pt.Lon
	}
	p.originLat = sumLat / float64(len(p.ring))
	p.originLon = sumLon / float64(len(p.ring))
	p.lonScale = metersPerDegLon * math.Cos(p.originLat*math.Pi/180)

	p.proj = make([]XY, len(p.ring))
	for i, pt := range p.ring {
		p.proj[i] = p.ToXY(pt)
	}
}

// ToXY maps a coordinate into the polygon's local frame.
func (p *Polygon) ToXY(pt Point) XY {
	return XY{
		X: (pt.Lon - p.originLon) * p.lonScale,
		Y: (pt.Lat - p.originLat) * metersPerDegLat,
	}
}

// FromXY maps a local-frame point back to a coordinate.
func (p *Polygon) FromXY(xy XY) Point {
	return Point{
		Lat: p.originLat + xy.Y/metersPerDegLat,
		Lon: p.originLon + xy.X/p.lonScale,
	}
}

// Ring returns the normalized open ring.
func (p *Polygon) Ring() []Point { return p.ring }

// Projected returns the ring in the local frame.
func (p *Polygon) Projected() []XY { return p.proj }

func (p *Polygon) signedAreaSqm() float64 {
	var sum float64
	n := len(p.proj)
	for i := 0; i < n; i++ {
		a, b := p.proj[i], p.proj[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// AreaHa returns the enclosed area in hectares.
func (p *Polygon) AreaHa() float64 {
	return math.Abs(p.signedAreaSqm()) / sqmPerHectare
}

// Centroid returns the area centroid in the local frame.
func (p *Polygon) Centroid() XY {
	var cx, cy float64
	a := p.signedAreaSqm()
	n := len(p.proj)
	for i := 0; i < n; i++ {
		p0, p1 := p.proj[i], p.proj[(i+1)%n]
		cross := p0.X*p1.Y - p1.X*p0.Y
		cx += (p0.X + p1.X) * cross
		cy += (p0.Y + p1.Y) * cross
	}
	return XY{X: cx / (6 * a), Y: cy / (6 * a)}
}

// findSelfIntersection tests every pair of non-adjacent edges.
// O(n^2) is fine: zone rings are tens of vertices, not thousands.
func (p *Polygon) findSelfIntersection() (int, int, bool) {
	n := len(p.proj)
	for i := 0; i < n; i++ {
		a1, a2 := p.proj[i], p.proj[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// skip the shared-vertex neighbours of edge i
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			b1, b2 := p.proj[j], p.proj[(j+1)%n]
			if segmentsCross(a1, a2, b1, b2) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// segmentsCross reports a proper crossing (strict, endpoints excluded).
func segmentsCross(a1, a2, b1, b2 XY) bool {
	d1 := cross(b1, b2, a1)
	d2 := cross(b1, b2, a2)
	d3 := cross(a1, a2, b1)
	d4 := cross(a1, a2, b2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross(o, a, b XY) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Contains reports whether the local-frame point lies inside the ring
// (ray casting; boundary points may go either way).
func (p *Polygon) Contains(pt XY) bool {
	inside := false
	n := len(p.proj)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.proj[i], p.proj[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
