package geo

import (
	"math"
	"sort"
)

// Chord is one interior segment of a line clipped against the polygon.
type Chord struct {
	A XY
	B XY
}

// Length returns the chord length in meters.
func (c Chord) Length() float64 {
	return math.Hypot(c.B.X-c.A.X, c.B.Y-c.A.Y)
}

// ClipLine intersects the infinite line through origin with direction dir
// against the polygon boundary and returns the interior chords, ordered
// along dir. Non-convex rings may yield more than one chord.
func (p *Polygon) ClipLine(origin, dir XY) []Chord {
	norm := math.Hypot(dir.X, dir.Y)
	if norm == 0 {
		return nil
	}
	dir = XY{X: dir.X / norm, Y: dir.Y / norm}

	// line parameter t at each boundary crossing
	var ts []float64
	n := len(p.proj)
	for i := 0; i < n; i++ {
		a, b := p.proj[i], p.proj[(i+1)%n]
		if t, ok := lineSegmentParam(origin, dir, a, b); ok {
			ts = append(ts, t)
		}
	}
	if len(ts) < 2 {
		return nil
	}
	sort.Float64s(ts)
	ts = dedupeParams(ts)

	// a span between consecutive crossings is a chord iff its midpoint is
	// interior; this stays correct when the line grazes a vertex
	var chords []Chord
	for i := 0; i+1 < len(ts); i++ {
		t0, t1 := ts[i], ts[i+1]
		if t1-t0 < 1e-6 {
			continue
		}
		mid := XY{X: origin.X + dir.X*(t0+t1)/2, Y: origin.Y + dir.Y*(t0+t1)/2}
		if !p.Contains(mid) {
			continue
		}
		chords = append(chords, Chord{
			A: XY{X: origin.X + dir.X*t0, Y: origin.Y + dir.Y*t0},
			B: XY{X: origin.X + dir.X*t1, Y: origin.Y + dir.Y*t1},
		})
	}
	return chords
}

// lineSegmentParam solves origin + t*dir == a + u*(b-a) for u in [0,1].
func lineSegmentParam(origin, dir, a, b XY) (float64, bool) {
	ex, ey := b.X-a.X, b.Y-a.Y
	denom := dir.X*ey - dir.Y*ex
	if math.Abs(denom) < 1e-12 {
		return 0, false // parallel or collinear edge; neighbours provide the crossings
	}
	u := (dir.X*(a.Y-origin.Y) - dir.Y*(a.X-origin.X)) / -denom
	if u < 0 || u > 1 {
		return 0, false
	}
	px, py := a.X+u*ex, a.Y+u*ey
	var t float64
	if math.Abs(dir.X) >= math.Abs(dir.Y) {
		t = (px - origin.X) / dir.X
	} else {
		t = (py - origin.Y) / dir.Y
	}
	return t, true
}

func dedupeParams(ts []float64) []float64 {
	out := ts[:1]
	for _, t := range ts[1:] {
		if t-out[len(out)-1] > 1e-9 {
			out = append(out, t)
		}
	}
	return out
}
