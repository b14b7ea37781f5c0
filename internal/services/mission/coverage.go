package mission

import (
	"fmt"

	"github.com/agribotlabs/agribot/internal/geo"
	"github.com/agribotlabs/agribot/internal/model/entities"
)

// CoverageConfig holds the path generation tunables. Zero values fall back
// to the documented defaults; pass it explicitly, there is no global state.
type CoverageConfig struct {
	ImplementWidthM    float64 // application width, default 12 m
	VelocityReformMS   float64 // target speed for reform lines, default 1.2 m/s
	VelocityMaintainMS float64 // target speed for maintain lines, default 1.8 m/s
	VelocityDefaultMS  float64 // fallback speed, default 1.5 m/s
	TurnTimeS          float64 // fixed penalty per line transition, default 15 s
}

func DefaultCoverageConfig() CoverageConfig {
	return CoverageConfig{
		ImplementWidthM:    12.0,
		VelocityReformMS:   1.2,
		VelocityMaintainMS: 1.8,
		VelocityDefaultMS:  1.5,
		TurnTimeS:          15.0,
	}
}

func (c CoverageConfig) withDefaults() CoverageConfig {
	d := DefaultCoverageConfig()
	if c.ImplementWidthM <= 0 {
		c.ImplementWidthM = d.ImplementWidthM
	}
	if c.VelocityReformMS <= 0 {
		c.VelocityReformMS = d.VelocityReformMS
	}
	if c.VelocityMaintainMS <= 0 {
		c.VelocityMaintainMS = d.VelocityMaintainMS
	}
	if c.VelocityDefaultMS <= 0 {
		c.VelocityDefaultMS = d.VelocityDefaultMS
	}
	if c.TurnTimeS <= 0 {
		c.TurnTimeS = d.TurnTimeS
	}
	return c
}

func (c CoverageConfig) velocityFor(action entities.ZoneAction) float64 {
	switch action {
	case entities.ActionReform:
		return c.VelocityReformMS
	case entities.ActionMaintain:
		return c.VelocityMaintainMS
	}
	return c.VelocityDefaultMS
}

// GeneratePath turns one zone into an ordered boustrophedon waypoint
// sequence. Geometry failures are returned to the caller and isolated there;
// a skip zone passes through with zero waypoints and a note.
func GeneratePath(zone entities.Zone, cfg CoverageConfig) (entities.ZoneMission, error) {
	cfg = cfg.withDefaults()

	zm := entities.ZoneMission{
		ZoneID:        zone.ID,
		ZoneAreaHa:    zone.AreaHa,
		Action:        zone.Action,
		Priority:      zone.Priority,
		ProductRateKg: zone.ProductRateKg,
	}

	if zone.Action == entities.ActionSkip {
		zm.Note = "zone skipped by prescription"
		return zm, nil
	}

	poly, err := geo.Validate(ringToPoints(zone.Ring))
	if err != nil {
		return zm, fmt.Errorf("zone %s: %w", zone.ID, err)
	}
	if zm.ZoneAreaHa <= 0 {
		zm.ZoneAreaHa = poly.AreaHa()
	}

	// travel along the dominant axis, spacing along its perpendicular
	travel := geo.AxisVector(poly.OrientationDeg())
	normal := geo.XY{X: travel.Y, Y: -travel.X}

	sMin, sMax := projectedExtent(poly.Projected(), normal)

	width := cfg.ImplementWidthM
	velocity := cfg.velocityFor(zone.Action)

	var (
		waypoints []entities.Waypoint
		lineIdx   int
		totalLenM float64
		reverse   bool
	)

	emit := func(ch geo.Chord) {
		a, b := ch.A, ch.B
		if reverse {
			a, b = b, a
		}
		start := poly.FromXY(a)
		end := poly.FromXY(b)
		waypoints = append(waypoints,
			entities.Waypoint{Lat: start.Lat, Lon: start.Lon, VelocityMS: velocity, Action: entities.WaypointStartLine, LineNumber: lineIdx},
			entities.Waypoint{Lat: end.Lat, Lon: end.Lon, VelocityMS: velocity, Action: entities.WaypointEndLine, LineNumber: lineIdx},
		)
		totalLenM += ch.Length()
		lineIdx++
		reverse = !reverse
	}

	// candidate lines span the extent plus half a spacing on each side;
	// lines that miss the polygon are discarded by the clipper
	for s := sMin + width/2; s <= sMax+width/2; s += width {
		origin := geo.XY{X: normal.X * s, Y: normal.Y * s}
		// a non-convex boundary can cut the line into several chords; each
		// chord becomes its own line with its own waypoint pair
		for _, ch := range poly.ClipLine(origin, travel) {
			emit(ch)
		}
	}

	// sub-width zone: fall back to a single line across the middle
	if lineIdx == 0 {
		mid := (sMin + sMax) / 2
		origin := geo.XY{X: normal.X * mid, Y: normal.Y * mid}
		for _, ch := range poly.ClipLine(origin, travel) {
			emit(ch)
		}
		zm.Note = "minimum viable coverage: zone narrower than implement width"
	}

	zm.Waypoints = waypoints
	zm.Stats = entities.ZoneStats{
		NumWaypoints: len(waypoints),
		NumLines:     lineIdx,
		CoverageHa:   totalLenM * width / 10000.0,
	}
	if lineIdx > 0 {
		travelS := totalLenM / velocity
		turnS := float64(lineIdx-1) * cfg.TurnTimeS
		zm.Stats.EstimatedDurationMin = (travelS + turnS) / 60.0
	}
	return zm, nil
}

func projectedExtent(pts []geo.XY, axis geo.XY) (float64, float64) {
	min, max := 0.0, 0.0
	for i, p := range pts {
		s := p.X*axis.X + p.Y*axis.Y
		if i == 0 || s < min {
			min = s
		}
		if i == 0 || s > max {
			max = s
		}
	}
	return min, max
}
