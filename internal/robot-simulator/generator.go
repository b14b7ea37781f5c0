package robot_simulator

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/agribotlabs/agribot/internal/model"
	"github.com/agribotlabs/agribot/internal/model/messages"
)

// ====== Tunables ======
const (
	// resource drain per minute of operation
	tankDrainPerMin    = 0.05
	batteryDrainPerMin = 0.01
	fuelDrainPerMin    = 0.02

	// fraction of fixes emitted with a degraded HDOP, so the validator's
	// precision rule has something to catch
	degradedFixRate = 0.02

	// fraction of dose samples pushed past the 10% deviation limit
	badDoseRate = 0.03

	metersPerDegLat = 111132.0
	metersPerDegLon = 111320.0
)

// TelemetryGenerator keeps the simulated robot state and advances it on
// every tick. Without a mission it runs a synthetic back-and-forth row
// traversal; once a mission arrives it follows the mission's waypoints.
type TelemetryGenerator struct {
	mu sync.Mutex

	deviceID  string
	operation messages.OperationType

	lat, lon   float64
	heading    float64
	speedKmh   float64
	tankPct    float64
	batteryPct float64
	fuelPct    float64

	// synthetic row traversal (no mission yet)
	startLon      float64
	rowWidthDeg   float64
	rowLengthDeg  float64
	direction     int // 1 forward, -1 backward
	rowsCompleted int

	// mission following
	waypoints []model.Waypoint
	wpIndex   int
	zoneByWP  []string

	last time.Time
	rng  *rand.Rand
}

func NewTelemetryGenerator(deviceID string, startLat, startLon float64, op messages.OperationType) *TelemetryGenerator {
	return &TelemetryGenerator{
		deviceID:     deviceID,
		operation:    op,
		lat:          startLat,
		lon:          startLon,
		startLon:     startLon,
		heading:      90.0, // east
		speedKmh:     8.0,
		tankPct:      100.0,
		batteryPct:   100.0,
		fuelPct:      100.0,
		rowWidthDeg:  12.0 / metersPerDegLat, // one implement width per row
		rowLengthDeg: 0.005,                  // ~550 m
		direction:    1,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FollowMission switches the generator to waypoint-following mode.
// The synthetic rows resume if the mission runs out.
func (g *TelemetryGenerator) FollowMission(m *model.Mission) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.waypoints = g.waypoints[:0]
	g.zoneByWP = g.zoneByWP[:0]
	for _, zm := range m.ZoneMissions {
		for _, wp := range zm.Waypoints {
			g.waypoints = append(g.waypoints, wp)
			g.zoneByWP = append(g.zoneByWP, zm.ZoneID)
		}
	}
	g.wpIndex = 0
}

// Next advances the state by the elapsed wall time and returns one message.
func (g *TelemetryGenerator) Next() *messages.TelemetryMessage {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	if g.last.IsZero() {
		g.last = now
	}
	dt := now.Sub(g.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	g.last = now

	zoneID := g.advance(dt)
	g.drainResources(dt / 60.0)

	// GPS noise; occasionally a degraded fix
	precision := 0.02 + g.rng.Float64()*0.06
	if g.rng.Float64() < degradedFixRate {
		precision = 12.0 + g.rng.Float64()*8.0
	}
	alt := 850.0 + g.rng.Float64()*4.0 - 2.0
	heading := g.heading

	var opData *messages.OperationData
	if g.operation.Applying() {
		prescribed := 100.0 + float64(zoneHash(zoneID)%50) // 100-150 kg/ha
		applied := prescribed + g.rng.Float64()*10.0 - 5.0
		if g.rng.Float64() < badDoseRate {
			applied = prescribed * 1.17
		}
		width := 12.0
		opData = &messages.OperationData{
			ZoneID:         zoneID,
			PrescribedDose: &prescribed,
			AppliedDose:    &applied,
			AppWidthM:      &width,
		}
	}

	engineTemp := 85.0 + g.rng.Float64()*15.0 - 5.0
	hydraulic := 180.0 + g.rng.Float64()*20.0 - 10.0
	health := &messages.DeviceHealth{
		TankLevelPct:    f64p(g.tankPct),
		BatteryPct:      f64p(g.batteryPct),
		FuelLevelPct:    f64p(g.fuelPct),
		EngineTempC:     &engineTemp,
		HydraulicPressB: &hydraulic,
	}

	status := messages.StatusOperational
	if g.tankPct < 10 || g.batteryPct < 15 || g.fuelPct < 10 {
		status = messages.StatusWarning
	}

	return &messages.TelemetryMessage{
		DeviceID:  g.deviceID,
		Timestamp: now,
		GPS: messages.GPSFix{
			Lat:        g.lat + g.rng.Float64()*2e-5 - 1e-5,
			Lon:        g.lon + g.rng.Float64()*2e-5 - 1e-5,
			PrecisionM: precision,
			AltitudeM:  &alt,
		},
		SpeedKmh:        g.speedKmh + g.rng.Float64() - 0.5,
		HeadingDeg:      &heading,
		Operation:       g.operation,
		Status:          status,
		OperationData:   opData,
		DeviceHealth:    health,
		FirmwareVersion: "v2.3.1",
	}
}

// advance moves the robot and returns the zone it is working in.
func (g *TelemetryGenerator) advance(dtSec float64) string {
	if len(g.waypoints) > 0 && g.wpIndex < len(g.waypoints) {
		return g.advanceAlongMission(dtSec)
	}
	g.advanceAlongRows(dtSec)
	// synthetic zone id derived from the current row band
	return fmt.Sprintf("Z%03d", (int(math.Abs(g.lat)*10000)%5)+1)
}

// advanceAlongMission walks the waypoint list at each waypoint's target
// velocity, snapping to a waypoint when the remaining distance fits in dt.
func (g *TelemetryGenerator) advanceAlongMission(dtSec float64) string {
	for dtSec > 0 && g.wpIndex < len(g.waypoints) {
		wp := g.waypoints[g.wpIndex]
		dLatM := (wp.Lat - g.lat) * metersPerDegLat
		dLonM := (wp.Lon - g.lon) * metersPerDegLon * math.Cos(g.lat*math.Pi/180)
		dist := math.Hypot(dLatM, dLonM)

		v := wp.VelocityMS
		if v <= 0 {
			v = 1.5
		}
		g.speedKmh = v * 3.6

		step := v * dtSec
		if step >= dist {
			g.lat, g.lon = wp.Lat, wp.Lon
			if dist > 0 {
				dtSec -= dist / v
			} else {
				dtSec = 0
			}
			g.wpIndex++
			continue
		}
		frac := step / dist
		g.lat += (wp.Lat - g.lat) * frac
		g.lon += (wp.Lon - g.lon) * frac
		g.heading = math.Mod(math.Atan2(dLonM, dLatM)*180/math.Pi+360, 360)
		dtSec = 0
	}
	if g.wpIndex < len(g.zoneByWP) {
		return g.zoneByWP[g.wpIndex]
	}
	if n := len(g.zoneByWP); n > 0 {
		return g.zoneByWP[n-1]
	}
	return ""
}

// advanceAlongRows is the pre-mission traversal: straight rows east-west,
// turning one row width north at each end.
func (g *TelemetryGenerator) advanceAlongRows(dtSec float64) {
	speedDegPerSec := (g.speedKmh / 3600.0) / 111.0
	if g.direction == 1 {
		g.lon += speedDegPerSec * dtSec
	} else {
		g.lon -= speedDegPerSec * dtSec
	}
	if math.Abs(g.lon-g.startLon) > g.rowLengthDeg {
		g.direction *= -1
		g.lat += g.rowWidthDeg
		g.rowsCompleted++
		if g.direction == 1 {
			g.heading = 90.0
		} else {
			g.heading = 270.0
		}
	}
}

func (g *TelemetryGenerator) drainResources(dtMin float64) {
	if g.operation.Applying() {
		g.tankPct = clampPct(g.tankPct - tankDrainPerMin*dtMin*100)
	}
	g.batteryPct = clampPct(g.batteryPct - batteryDrainPerMin*dtMin*100)
	g.fuelPct = clampPct(g.fuelPct - fuelDrainPerMin*dtMin*100)
}

func zoneHash(zoneID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(zoneID))
	return h.Sum32()
}

func f64p(v float64) *float64 { return &v }

func clampPct(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return x
}
