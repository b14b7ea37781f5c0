package entities

// PrescriptionType is the kind of variable-rate plan a prescription encodes.
type PrescriptionType string

const (
	PrescriptionVRAReform      PrescriptionType = "vra_reform"
	PrescriptionVRAMaintenance PrescriptionType = "vra_maintenance"
)

func (t PrescriptionType) Valid() bool {
	switch t {
	case PrescriptionVRAReform, PrescriptionVRAMaintenance:
		return true
	}
	return false
}

// ZoneAction is what the robot does inside a zone.
type ZoneAction string

const (
	ActionReform   ZoneAction = "reform"
	ActionMaintain ZoneAction = "maintain"
	ActionSkip     ZoneAction = "skip"
)

func (a ZoneAction) Valid() bool {
	switch a {
	case ActionReform, ActionMaintain, ActionSkip:
		return true
	}
	return false
}

// ZonePriority orders zones for the operator; it does not change path geometry.
type ZonePriority string

const (
	PriorityLow    ZonePriority = "low"
	PriorityNormal ZonePriority = "normal"
	PriorityHigh   ZonePriority = "high"
)

func (p ZonePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Zone is one sub-field polygon with a single prescribed action and rate.
// Geometry is the outer ring as [lat,lon] pairs; the ring is structurally
// sound after import but may still fail geometric validation, which the
// assembler records as a zone-level error.
type Zone struct {
	ID            string       `json:"zone_id"`
	AreaHa        float64      `json:"area_ha,omitempty"` // declared upstream, may be approximate
	Action        ZoneAction   `json:"action"`
	Priority      ZonePriority `json:"priority"`
	ProductRateKg float64      `json:"product_rate_kg_ha,omitempty"`
	Ring          [][2]float64 `json:"ring"` // outer boundary, [lat, lon]
}

// Prescription is the immutable input of mission generation.
type Prescription struct {
	ID      string           `json:"prescription_id"`
	FieldID string           `json:"field_id"`
	Type    PrescriptionType `json:"prescription_type"`
	Zones   []Zone           `json:"zones"`
}
