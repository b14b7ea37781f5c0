package entities

import "time"

// MissionStatus is the lifecycle of a generated mission. Generation only ever
// produces draft or ready; the later states are set by the execution side.
type MissionStatus string

const (
	MissionDraft      MissionStatus = "draft"
	MissionReady      MissionStatus = "ready"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionFailed     MissionStatus = "failed"
)

// WaypointAction tags what the implement does at a waypoint. Generation only
// emits line endpoints; the remaining tags are reserved for the execution side.
type WaypointAction string

const (
	WaypointStartLine      WaypointAction = "start_line"
	WaypointEndLine        WaypointAction = "end_line"
	WaypointTurn           WaypointAction = "turn"
	WaypointApplicationOn  WaypointAction = "application_on"
	WaypointApplicationOff WaypointAction = "application_off"
)

// Waypoint is a single navigation target. Order within a zone mission is
// significant: consumers traverse the slice front to back.
type Waypoint struct {
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	VelocityMS float64        `json:"velocity_m_s"`
	Action     WaypointAction `json:"action"`
	LineNumber int            `json:"line_number"`
}

// ZoneStats are derived per-zone figures, summed into mission metadata.
type ZoneStats struct {
	NumWaypoints         int     `json:"num_waypoints"`
	NumLines             int     `json:"num_lines"`
	CoverageHa           float64 `json:"coverage_ha"`
	EstimatedDurationMin float64 `json:"estimated_duration_min"`
}

// ZoneMission is the generated path for one zone. Created once per zone per
// prescription and never mutated; regeneration replaces it wholesale.
type ZoneMission struct {
	ZoneID        string       `json:"zone_id"`
	ZoneAreaHa    float64      `json:"zone_area_ha"`
	Action        ZoneAction   `json:"action"`
	Priority      ZonePriority `json:"priority"`
	ProductRateKg float64      `json:"product_rate_kg_ha,omitempty"`
	Waypoints     []Waypoint   `json:"waypoints"`
	Stats         ZoneStats    `json:"stats"`
	Note          string       `json:"note,omitempty"` // e.g. skip passthrough
}

// ZoneError records a zone whose path generation failed. The mission still
// carries every sibling that succeeded.
type ZoneError struct {
	ZoneID string `json:"zone_id"`
	Error  string `json:"error"`
}

// MissionMetadata aggregates over successfully generated zone missions only.
type MissionMetadata struct {
	TotalZones        int     `json:"total_zones"`
	TotalWaypoints    int     `json:"total_waypoints"`
	TotalAreaHa       float64 `json:"total_area_ha"`
	EstTotalDurations float64 `json:"estimated_total_duration_min"`
}

// Mission is the terminal artifact of the generation pipeline.
type Mission struct {
	ID             string          `json:"mission_id"`
	PrescriptionID string          `json:"prescription_id"`
	FieldID        string          `json:"field_id"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Status         MissionStatus   `json:"status"`
	ZoneMissions   []ZoneMission   `json:"zone_missions"`
	ZoneErrors     []ZoneError     `json:"zone_errors,omitempty"`
	Metadata       MissionMetadata `json:"metadata"`
}
