package telemetry

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/agribotlabs/agribot/internal/model/messages"
)

const (
	measurementTelemetry = "robot_telemetry"
	measurementAlert     = "compliance_alert"
)

// TelemetryToPoint normalizes a validated message into an Influx point.
// Flagged messages are stored too; the flag travels as a tag so dashboards
// can filter them out.
func TelemetryToPoint(m *messages.TelemetryMessage, res Result) *write.Point {
	tags := map[string]string{
		"device_id": m.DeviceID,
		"operation": string(m.Operation),
		"status":    string(m.Status),
	}
	if res.Flagged {
		tags["flagged"] = "true"
	}
	if m.OperationData != nil && m.OperationData.ZoneID != "" {
		tags["zone_id"] = m.OperationData.ZoneID
	}

	fields := map[string]interface{}{
		"lat":         m.GPS.Lat,
		"lon":         m.GPS.Lon,
		"precision_m": m.GPS.PrecisionM,
		"speed_kmh":   m.SpeedKmh,
	}
	if m.HeadingDeg != nil {
		fields["heading_deg"] = *m.HeadingDeg
	}
	if m.GPS.AltitudeM != nil {
		fields["altitude_m"] = *m.GPS.AltitudeM
	}
	if od := m.OperationData; od != nil {
		if od.PrescribedDose != nil {
			fields["prescribed_dose"] = *od.PrescribedDose
		}
		if od.AppliedDose != nil {
			fields["applied_dose"] = *od.AppliedDose
		}
		if od.AppWidthM != nil {
			fields["application_width_m"] = *od.AppWidthM
		}
	}
	if h := m.DeviceHealth; h != nil {
		if h.TankLevelPct != nil {
			fields["tank_level_pct"] = *h.TankLevelPct
		}
		if h.BatteryPct != nil {
			fields["battery_pct"] = *h.BatteryPct
		}
		if h.FuelLevelPct != nil {
			fields["fuel_level_pct"] = *h.FuelLevelPct
		}
		if h.EngineTempC != nil {
			fields["engine_temp_c"] = *h.EngineTempC
		}
		if h.HydraulicPressB != nil {
			fields["hydraulic_pressure_bar"] = *h.HydraulicPressB
		}
	}

	return influxdb2.NewPoint(measurementTelemetry, tags, fields, m.Timestamp)
}

// AlertToPoint normalizes a compliance alert into an Influx point.
func AlertToPoint(a messages.ComplianceAlert) *write.Point {
	tags := map[string]string{
		"kind":      string(a.Kind),
		"device_id": a.DeviceID,
	}
	if a.ZoneID != "" {
		tags["zone_id"] = a.ZoneID
	}
	fields := map[string]interface{}{
		"alert_id":  a.ID,
		"magnitude": a.Magnitude,
		"message":   a.Message,
	}
	return influxdb2.NewPoint(measurementAlert, tags, fields, a.Timestamp)
}
