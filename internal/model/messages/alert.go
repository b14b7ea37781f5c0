package messages

import "time"

// AlertKind classifies a compliance signal raised during telemetry validation.
type AlertKind string

const (
	AlertPrecisionViolation AlertKind = "precision_violation"
	AlertDoseDeviation      AlertKind = "dose_deviation"
	AlertFieldOutOfRange    AlertKind = "field_out_of_range"
	AlertOutOfOrder         AlertKind = "out_of_order"
)

// ComplianceAlert is emitted alongside a validated message. Warnings never
// block message acceptance; they are recorded and surfaced downstream.
type ComplianceAlert struct {
	ID        string    `json:"alert_id"`
	Kind      AlertKind `json:"kind"`
	DeviceID  string    `json:"device_id"`
	ZoneID    string    `json:"zone_id,omitempty"`
	Magnitude float64   `json:"magnitude,omitempty"` // e.g. dose deviation fraction, HDOP meters
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
