package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agribotlabs/agribot/internal/model/messages"
)

// Input errors: the message is malformed and rejected before validation.
var (
	ErrMalformedMessage = errors.New("malformed telemetry message")
	ErrMissingDeviceID  = errors.New("missing device id")
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrInvalidPosition  = errors.New("invalid gps position")
	ErrInvalidEnum      = errors.New("invalid enumerated value")
)

// ParseTelemetry decodes and structurally validates one raw message.
// Field-level constraints are enforced here so downstream code only ever
// sees well-formed messages.
func ParseTelemetry(data []byte) (*messages.TelemetryMessage, error) {
	var m messages.TelemetryMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}
	if m.Timestamp.IsZero() {
		return nil, ErrMissingTimestamp
	}
	if m.GPS.Lat < -90 || m.GPS.Lat > 90 || m.GPS.Lon < -180 || m.GPS.Lon > 180 ||
		math.IsNaN(m.GPS.Lat) || math.IsNaN(m.GPS.Lon) {
		return nil, fmt.Errorf("%w: (%f, %f)", ErrInvalidPosition, m.GPS.Lat, m.GPS.Lon)
	}
	if m.GPS.PrecisionM <= 0 {
		return nil, fmt.Errorf("%w: precision %f", ErrInvalidPosition, m.GPS.PrecisionM)
	}
	if !m.Operation.Valid() {
		return nil, fmt.Errorf("%w: operation %q", ErrInvalidEnum, m.Operation)
	}
	if m.Status == "" {
		m.Status = messages.StatusOperational
	}
	if !m.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidEnum, m.Status)
	}
	if h := m.DeviceHealth; h != nil {
		for name, v := range map[string]*float64{
			"tank_level_pct": h.TankLevelPct,
			"battery_pct":    h.BatteryPct,
			"fuel_level_pct": h.FuelLevelPct,
		} {
			if v != nil && (*v < 0 || *v > 100) {
				return nil, fmt.Errorf("%w: %s %f", ErrMalformedMessage, name, *v)
			}
		}
	}
	return &m, nil
}

// ValidatorConfig holds the compliance thresholds. Zero values fall back to
// the documented defaults.
type ValidatorConfig struct {
	MaxHDOPM          float64 // GPS precision ceiling for operational work, default 10 m
	DoseDeviationFrac float64 // applied/prescribed relative deviation limit, default 0.10
	MinSpeedKmh       float64 // default 0
	MaxSpeedKmh       float64 // default 50
}

func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		MaxHDOPM:          10.0,
		DoseDeviationFrac: 0.10,
		MinSpeedKmh:       0,
		MaxSpeedKmh:       50,
	}
}

func (c ValidatorConfig) withDefaults() ValidatorConfig {
	d := DefaultValidatorConfig()
	if c.MaxHDOPM <= 0 {
		c.MaxHDOPM = d.MaxHDOPM
	}
	if c.DoseDeviationFrac <= 0 {
		c.DoseDeviationFrac = d.DoseDeviationFrac
	}
	if c.MaxSpeedKmh <= 0 {
		c.MaxSpeedKmh = d.MaxSpeedKmh
	}
	return c
}

// Result of validating one message. A rejected message is not stored;
// a flagged message is stored with its warnings attached.
type Result struct {
	Accepted bool
	Flagged  bool
	Alerts   []messages.ComplianceAlert
}

// Validator enforces the per-message compliance rules. Validations are
// independent per message; the only cross-message state is the last accepted
// timestamp per device, used for the monotonicity warning. Safe for
// concurrent use across devices; messages of one device must be presented
// in arrival order (the MQTT consumer delivers callbacks in order).
type Validator struct {
	cfg ValidatorConfig

	mu           sync.Mutex
	lastAccepted map[string]time.Time
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{
		cfg:          cfg.withDefaults(),
		lastAccepted: make(map[string]time.Time),
	}
}

// Validate runs every rule against one parsed message.
func (v *Validator) Validate(m *messages.TelemetryMessage) Result {
	res := Result{Accepted: true}

	// hard range checks reject the message
	if m.SpeedKmh < v.cfg.MinSpeedKmh || m.SpeedKmh > v.cfg.MaxSpeedKmh {
		res.Accepted = false
		res.Alerts = append(res.Alerts, v.alert(m, messages.AlertFieldOutOfRange, "", m.SpeedKmh,
			fmt.Sprintf("speed %.1f km/h outside [%.1f, %.1f]", m.SpeedKmh, v.cfg.MinSpeedKmh, v.cfg.MaxSpeedKmh)))
	}
	if m.HeadingDeg != nil && (*m.HeadingDeg < 0 || *m.HeadingDeg >= 360) {
		res.Accepted = false
		res.Alerts = append(res.Alerts, v.alert(m, messages.AlertFieldOutOfRange, "", *m.HeadingDeg,
			fmt.Sprintf("heading %.1f outside [0, 360)", *m.HeadingDeg)))
	}

	// precision violation: a warning, message stored but flagged
	if m.Status.Operational() && m.GPS.PrecisionM > v.cfg.MaxHDOPM {
		res.Flagged = true
		res.Alerts = append(res.Alerts, v.alert(m, messages.AlertPrecisionViolation, "", m.GPS.PrecisionM,
			fmt.Sprintf("gps precision %.2f m above %.1f m threshold", m.GPS.PrecisionM, v.cfg.MaxHDOPM)))
	}

	// dose deviation: needs both figures
	if od := m.OperationData; od != nil && od.PrescribedDose != nil && od.AppliedDose != nil && *od.PrescribedDose > 0 {
		dev := math.Abs(*od.AppliedDose-*od.PrescribedDose) / *od.PrescribedDose
		if dev > v.cfg.DoseDeviationFrac {
			res.Flagged = true
			res.Alerts = append(res.Alerts, v.alert(m, messages.AlertDoseDeviation, od.ZoneID, dev,
				fmt.Sprintf("applied dose %.1f deviates %.1f%% from prescribed %.1f",
					*od.AppliedDose, dev*100, *od.PrescribedDose)))
		}
	}

	if res.Accepted {
		v.checkOrder(m, &res)
	}
	return res
}

// checkOrder flags timestamps older than the device's last accepted message.
// A warning only; the stream stays append-only either way.
func (v *Validator) checkOrder(m *messages.TelemetryMessage, res *Result) {
	v.mu.Lock()
	defer v.mu.Unlock()

	last, ok := v.lastAccepted[m.DeviceID]
	if ok && m.Timestamp.Before(last) {
		res.Flagged = true
		res.Alerts = append(res.Alerts, v.alert(m, messages.AlertOutOfOrder, "",
			last.Sub(m.Timestamp).Seconds(),
			fmt.Sprintf("timestamp %s earlier than last accepted %s",
				m.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339))))
		return
	}
	v.lastAccepted[m.DeviceID] = m.Timestamp
}

func (v *Validator) alert(m *messages.TelemetryMessage, kind messages.AlertKind, zoneID string, magnitude float64, text string) messages.ComplianceAlert {
	return messages.ComplianceAlert{
		ID:        uuid.NewString(),
		Kind:      kind,
		DeviceID:  m.DeviceID,
		ZoneID:    zoneID,
		Magnitude: magnitude,
		Message:   text,
		Timestamp: m.Timestamp,
	}
}
