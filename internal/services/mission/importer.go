package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/agribotlabs/agribot/internal/geo"
	"github.com/agribotlabs/agribot/internal/model/entities"
)

// Import failure kinds, matchable with errors.Is.
var (
	ErrMissingField            = errors.New("missing required field")
	ErrEmptyPrescription       = errors.New("prescription has no zones")
	ErrDuplicateZoneID         = errors.New("duplicate zone id")
	ErrUnsupportedGeometryType = errors.New("unsupported geometry type")
	ErrInvalidCoordinate       = errors.New("invalid coordinate")
	ErrInvalidEnum             = errors.New("invalid enumerated value")
)

// Wire shape of the prescription document (GeoJSON polygon per zone).
type prescriptionDoc struct {
	PrescriptionID string    `json:"prescription_id"`
	FieldID        string    `json:"field_id"`
	Type           string    `json:"prescription_type"`
	Zones          []zoneDoc `json:"zones"`
}

type zoneDoc struct {
	ZoneID          string       `json:"zone_id"`
	AreaHa          float64      `json:"area_ha"`
	Action          string       `json:"action"`
	Priority        string       `json:"priority"`
	ProductRateKgHa float64      `json:"product_rate_kg_ha"`
	Geometry        *geometryDoc `json:"geometry"`
}

type geometryDoc struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Importer parses and structurally validates prescription documents before
// they reach the assembler.
type Importer struct {
	// declared vs computed area mismatch beyond this fraction is logged,
	// never fatal: upstream area figures are often approximate
	AreaTolerance float64
}

func NewImporter() *Importer {
	return &Importer{AreaTolerance: 0.10}
}

// Import validates the raw document and returns a normalized prescription.
// Zone polygons are run through kernel validation here; a zone that fails is
// kept (the assembler records it as a zone-level error) so one bad polygon
// cannot reject the whole document.
func (im *Importer) Import(data []byte) (*entities.Prescription, error) {
	var doc prescriptionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse prescription: %w", err)
	}

	if doc.PrescriptionID == "" {
		return nil, fmt.Errorf("%w: prescription_id", ErrMissingField)
	}
	if doc.FieldID == "" {
		return nil, fmt.Errorf("%w: field_id", ErrMissingField)
	}
	if doc.Type == "" {
		return nil, fmt.Errorf("%w: prescription_type", ErrMissingField)
	}
	ptype := entities.PrescriptionType(doc.Type)
	if !ptype.Valid() {
		return nil, fmt.Errorf("%w: prescription_type %q", ErrInvalidEnum, doc.Type)
	}
	if len(doc.Zones) == 0 {
		return nil, ErrEmptyPrescription
	}

	out := &entities.Prescription{
		ID:      doc.PrescriptionID,
		FieldID: doc.FieldID,
		Type:    ptype,
		Zones:   make([]entities.Zone, 0, len(doc.Zones)),
	}

	seen := make(map[string]bool, len(doc.Zones))
	for i, zd := range doc.Zones {
		if zd.ZoneID == "" {
			return nil, fmt.Errorf("%w: zones[%d].zone_id", ErrMissingField, i)
		}
		if seen[zd.ZoneID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateZoneID, zd.ZoneID)
		}
		seen[zd.ZoneID] = true

		zone, err := im.importZone(zd)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", zd.ZoneID, err)
		}
		out.Zones = append(out.Zones, zone)
	}
	return out, nil
}

func (im *Importer) importZone(zd zoneDoc) (entities.Zone, error) {
	var zone entities.Zone

	action := entities.ZoneAction(zd.Action)
	if zd.Action == "" {
		return zone, fmt.Errorf("%w: action", ErrMissingField)
	}
	if !action.Valid() {
		return zone, fmt.Errorf("%w: action %q", ErrInvalidEnum, zd.Action)
	}

	priority := entities.PriorityNormal
	if zd.Priority != "" {
		priority = entities.ZonePriority(zd.Priority)
		if !priority.Valid() {
			return zone, fmt.Errorf("%w: priority %q", ErrInvalidEnum, zd.Priority)
		}
	}

	ring, err := parseGeometry(zd.Geometry)
	if err != nil {
		return zone, err
	}

	zone = entities.Zone{
		ID:            zd.ZoneID,
		AreaHa:        zd.AreaHa,
		Action:        action,
		Priority:      priority,
		ProductRateKg: zd.ProductRateKgHa,
		Ring:          ring,
	}

	// geometry sanity at import time; failures stay zone-local
	poly, err := geo.Validate(ringToPoints(ring))
	if err != nil {
		log.Printf("importer: zone %s geometry invalid, deferring to generation: %v", zd.ZoneID, err)
		return zone, nil
	}
	if zd.AreaHa > 0 {
		computed := poly.AreaHa()
		if computed > 0 && math.Abs(zd.AreaHa-computed)/computed > im.AreaTolerance {
			log.Printf("importer: zone %s declared area %.2f ha deviates from computed %.2f ha",
				zd.ZoneID, zd.AreaHa, computed)
		}
	}
	return zone, nil
}

func parseGeometry(g *geometryDoc) ([][2]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: geometry", ErrMissingField)
	}
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedGeometryType, g.Type)
	}

	// GeoJSON: array of linear rings, each ring an array of [lon, lat]
	var rings [][][]float64
	if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, fmt.Errorf("%w: geometry.coordinates", ErrMissingField)
	}

	outer := rings[0]
	ring := make([][2]float64, 0, len(outer))
	for i, pair := range outer {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: ring[%d] has %d values", ErrInvalidCoordinate, i, len(pair))
		}
		lon, lat := pair[0], pair[1]
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return nil, fmt.Errorf("%w: ring[%d] not finite", ErrInvalidCoordinate, i)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("%w: ring[%d] (%f, %f) out of range", ErrInvalidCoordinate, i, lat, lon)
		}
		ring = append(ring, [2]float64{lat, lon})
	}
	return ring, nil
}

func ringToPoints(ring [][2]float64) []geo.Point {
	pts := make([]geo.Point, len(ring))
	for i, ll := range ring {
		pts[i] = geo.Point{Lat: ll[0], Lon: ll[1]}
	}
	return pts
}
