package messages

import "time"

// OperationType is the robot's current agricultural operation.
type OperationType string

const (
	OpFertilizerApplication OperationType = "fertilizer_application"
	OpPesticideApplication  OperationType = "pesticide_application"
	OpSeeding               OperationType = "seeding"
	OpHarvest               OperationType = "harvest"
	OpSoilSampling          OperationType = "soil_sampling"
	OpIdle                  OperationType = "idle"
	OpMaintenance           OperationType = "maintenance"
)

func (o OperationType) Valid() bool {
	switch o {
	case OpFertilizerApplication, OpPesticideApplication, OpSeeding,
		OpHarvest, OpSoilSampling, OpIdle, OpMaintenance:
		return true
	}
	return false
}

// Applying reports whether the operation dispenses product, i.e. whether
// dose figures are expected in the payload.
func (o OperationType) Applying() bool {
	return o == OpFertilizerApplication || o == OpPesticideApplication
}

// DeviceStatus is self-reported by the robot; the validator does not
// constrain transitions between statuses.
type DeviceStatus string

const (
	StatusOperational DeviceStatus = "operational"
	StatusWarning     DeviceStatus = "warning"
	StatusError       DeviceStatus = "error"
	StatusMaintenance DeviceStatus = "maintenance"
	StatusOffline     DeviceStatus = "offline"
)

func (s DeviceStatus) Valid() bool {
	switch s {
	case StatusOperational, StatusWarning, StatusError, StatusMaintenance, StatusOffline:
		return true
	}
	return false
}

// Operational statuses require an acceptable GPS fix.
func (s DeviceStatus) Operational() bool {
	return s == StatusOperational || s == StatusWarning
}

// GPSFix is a position sample with quality metadata. Precision is the
// horizontal error estimate in meters (HDOP-scaled); lower is better.
type GPSFix struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	PrecisionM float64  `json:"precision"`
	AltitudeM  *float64 `json:"altitude,omitempty"`
}

// OperationData tracks variable-rate execution inside a zone.
type OperationData struct {
	ZoneID         string   `json:"zone_id,omitempty"`
	PrescribedDose *float64 `json:"prescribed_dose,omitempty"` // kg/ha or L/ha
	AppliedDose    *float64 `json:"applied_dose,omitempty"`
	AppWidthM      *float64 `json:"application_width_m,omitempty"`
}

// DeviceHealth carries resource levels; all fields optional.
type DeviceHealth struct {
	TankLevelPct    *float64 `json:"tank_level_pct,omitempty"`
	BatteryPct      *float64 `json:"battery_pct,omitempty"`
	FuelLevelPct    *float64 `json:"fuel_level_pct,omitempty"`
	EngineTempC     *float64 `json:"engine_temp_c,omitempty"`
	HydraulicPressB *float64 `json:"hydraulic_pressure_bar,omitempty"`
}

// TelemetryMessage is one point-in-time snapshot from a robot. The stream is
// append-only per device; no message mutates another.
type TelemetryMessage struct {
	DeviceID   string        `json:"device_id"`
	Timestamp  time.Time     `json:"timestamp"`
	GPS        GPSFix        `json:"gps"`
	SpeedKmh   float64       `json:"speed_kmh"`
	HeadingDeg *float64      `json:"heading_deg,omitempty"`
	Operation  OperationType `json:"operation"`
	Status     DeviceStatus  `json:"status"`

	OperationData *OperationData `json:"operation_data,omitempty"`
	DeviceHealth  *DeviceHealth  `json:"device_health,omitempty"`

	FirmwareVersion string `json:"firmware_version,omitempty"`
	OperatorID      string `json:"operator_id,omitempty"`
}
