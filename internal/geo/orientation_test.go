package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// angular distance between two bearings on the [0,180) axis circle
func axisDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 90 {
		d = 180 - d
	}
	return d
}

func TestOrientationEastWestField(t *testing.T) {
	// 600 m x 100 m, long axis pointing east
	p, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {600, 0}, {600, 100}, {0, 100},
	}))
	require.NoError(t, err)
	assert.Less(t, axisDiff(p.OrientationDeg(), 90), 2.0)
}

func TestOrientationNorthSouthField(t *testing.T) {
	p, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {100, 0}, {100, 600}, {0, 600},
	}))
	require.NoError(t, err)
	assert.Less(t, axisDiff(p.OrientationDeg(), 0), 2.0)
}

func TestOrientationDiagonalField(t *testing.T) {
	// long axis along the NE diagonal (45 degrees from north)
	p, err := Validate(ringFromMeters([][2]float64{
		{0, 0}, {400, 400}, {350, 450}, {-50, 50},
	}))
	require.NoError(t, err)
	assert.Less(t, axisDiff(p.OrientationDeg(), 45), 3.0)
}

func TestAxisVector(t *testing.T) {
	east := AxisVector(90)
	assert.InDelta(t, 1.0, east.X, 1e-9)
	assert.InDelta(t, 0.0, east.Y, 1e-9)

	north := AxisVector(0)
	assert.InDelta(t, 0.0, north.X, 1e-9)
	assert.InDelta(t, 1.0, north.Y, 1e-9)
}
