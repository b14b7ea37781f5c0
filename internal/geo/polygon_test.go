package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLat = 44.6488
	testLon = 10.9204
)

// ringFromMeters builds a WGS84 ring from local offsets in meters around the
// test origin, so expected areas and lengths can be stated exactly.
func ringFromMeters(xy [][2]float64) []Point {
	lonScale := metersPerDegLon * math.Cos(testLat*math.Pi/180)
	out := make([]Point, len(xy))
	for i, p := range xy {
		out[i] = Point{
			Lat: testLat + p[1]/metersPerDegLat,
			Lon: testLon + p[0]/lonScale,
		}
	}
	return out
}

func TestValidateRectangleArea(t *testing.T) {
	// 500 m x 200 m = 10 ha
	p, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {500, 0}, {500, 200}, {0, 200},
	}))
	require.NoError(t, err)
	assert.InEpsilon(t, 10.0, p.AreaHa(), 0.001)
}

func TestValidateAcceptsClosedRing(t *testing.T) {
	ring := ringFromMeters([][2]float64{
		{0, 0}, {100, 0}, {100, 100}, {0, 100}, {0, 0},
	})
	p, err := Validate(ring)
	require.NoError(t, err)
	assert.Len(t, p.Ring(), 4, "closing vertex should be dropped")
}

func TestValidateDegenerate(t *testing.T) {
	t.Run("too few vertices", func(t *testing.T) {
		_, err := Validate(ringFromMeters([][2]float64{{0, 0}, {100, 0}}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDegenerateGeometry)
	})

	t.Run("duplicate vertices collapse", func(t *testing.T) {
		_, err := Validate(ringFromMeters([][2]float64{
			{0, 0}, {0, 0}, {100, 0}, {100, 0},
		}))
		assert.ErrorIs(t, err, ErrDegenerateGeometry)
	})

	t.Run("collinear ring has zero area", func(t *testing.T) {
		_, err := Validate(ringFromMeters([][2]float64{
			{0, 0}, {100, 0}, {200, 0},
		}))
		assert.ErrorIs(t, err, ErrDegenerateGeometry)
	})
}

func TestValidateSelfIntersecting(t *testing.T) {
	// bowtie: edges (0->1) and (2->3) cross
	_, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {100, 100}, {100, 0}, {0, 100},
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSelfIntersecting)
}

func TestCentroidAndContains(t *testing.T) {
	p, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {400, 0}, {400, 300}, {0, 300},
	}))
	require.NoError(t, err)

	c := p.Centroid()
	assert.True(t, p.Contains(c))

	// well outside the ring in the local frame
	assert.False(t, p.Contains(XY{X: c.X + 1000, Y: c.Y}))
}

func TestXYRoundTrip(t *testing.T) {
	p, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {400, 0}, {400, 300}, {0, 300},
	}))
	require.NoError(t, err)

	orig := Point{Lat: testLat + 0.001, Lon: testLon + 0.001}
	back := p.FromXY(p.ToXY(orig))
	assert.InDelta(t, orig.Lat, back.Lat, 1e-9)
	assert.InDelta(t, orig.Lon, back.Lon, 1e-9)
}
