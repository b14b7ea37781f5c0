package mission

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribotlabs/agribot/internal/model/entities"
)

// geoJSONPolygon renders a [lat,lon] ring as a GeoJSON coordinates array
// (which is [lon,lat] order).
func geoJSONPolygon(ring [][2]float64) json.RawMessage {
	outer := make([][2]float64, len(ring))
	for i, ll := range ring {
		outer[i] = [2]float64{ll[1], ll[0]}
	}
	b, _ := json.Marshal([][][2]float64{outer})
	return b
}

func validDoc() map[string]any {
	return map[string]any{
		"prescription_id":   "RX-2026-001",
		"field_id":          "F-42",
		"prescription_type": "vra_reform",
		"zones": []map[string]any{
			{
				"zone_id":            "Z001",
				"area_ha":            10.0,
				"action":             "reform",
				"priority":           "high",
				"product_rate_kg_ha": 120.0,
				"geometry": map[string]any{
					"type":        "Polygon",
					"coordinates": geoJSONPolygon(ringMeters([][2]float64{{0, 0}, {500, 0}, {500, 200}, {0, 200}})),
				},
			},
			{
				"zone_id": "Z002",
				"action":  "maintain",
				"geometry": map[string]any{
					"type":        "Polygon",
					"coordinates": geoJSONPolygon(ringMeters([][2]float64{{600, 0}, {900, 0}, {900, 200}, {600, 200}})),
				},
			},
		},
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestImportValidDocument(t *testing.T) {
	p, err := NewImporter().Import(mustJSON(t, validDoc()))
	require.NoError(t, err)

	assert.Equal(t, "RX-2026-001", p.ID)
	assert.Equal(t, "F-42", p.FieldID)
	assert.Equal(t, entities.PrescriptionVRAReform, p.Type)
	require.Len(t, p.Zones, 2)

	z := p.Zones[0]
	assert.Equal(t, "Z001", z.ID)
	assert.Equal(t, entities.ActionReform, z.Action)
	assert.Equal(t, entities.PriorityHigh, z.Priority)
	assert.InDelta(t, 120.0, z.ProductRateKg, 1e-9)
	require.Len(t, z.Ring, 4)
	// ring stored as [lat, lon]
	assert.InDelta(t, baseLat, z.Ring[0][0], 1e-9)
	assert.InDelta(t, baseLon, z.Ring[0][1], 1e-9)

	// priority defaults to normal when omitted
	assert.Equal(t, entities.PriorityNormal, p.Zones[1].Priority)
}

func TestImportErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(doc map[string]any)
		want   error
	}{
		{
			name:   "missing prescription id",
			mutate: func(d map[string]any) { delete(d, "prescription_id") },
			want:   ErrMissingField,
		},
		{
			name:   "missing field id",
			mutate: func(d map[string]any) { delete(d, "field_id") },
			want:   ErrMissingField,
		},
		{
			name:   "unknown prescription type",
			mutate: func(d map[string]any) { d["prescription_type"] = "vra_unknown" },
			want:   ErrInvalidEnum,
		},
		{
			name:   "no zones",
			mutate: func(d map[string]any) { d["zones"] = []map[string]any{} },
			want:   ErrEmptyPrescription,
		},
		{
			name: "duplicate zone id",
			mutate: func(d map[string]any) {
				zones := d["zones"].([]map[string]any)
				zones[1]["zone_id"] = zones[0]["zone_id"]
			},
			want: ErrDuplicateZoneID,
		},
		{
			name: "unknown action",
			mutate: func(d map[string]any) {
				d["zones"].([]map[string]any)[0]["action"] = "plow"
			},
			want: ErrInvalidEnum,
		},
		{
			name: "geometry is not a polygon",
			mutate: func(d map[string]any) {
				d["zones"].([]map[string]any)[0]["geometry"].(map[string]any)["type"] = "Point"
			},
			want: ErrUnsupportedGeometryType,
		},
		{
			name: "missing geometry",
			mutate: func(d map[string]any) {
				delete(d["zones"].([]map[string]any)[0], "geometry")
			},
			want: ErrMissingField,
		},
		{
			name: "coordinate out of range",
			mutate: func(d map[string]any) {
				d["zones"].([]map[string]any)[0]["geometry"].(map[string]any)["coordinates"] =
					json.RawMessage(`[[[10.9, 44.6], [200.0, 44.6], [10.9, 45.0]]]`)
			},
			want: ErrInvalidCoordinate,
		},
		{
			name: "coordinate pair too short",
			mutate: func(d map[string]any) {
				d["zones"].([]map[string]any)[0]["geometry"].(map[string]any)["coordinates"] =
					json.RawMessage(`[[[10.9, 44.6], [10.95], [10.9, 45.0]]]`)
			},
			want: ErrInvalidCoordinate,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := validDoc()
			tc.mutate(doc)
			_, err := NewImporter().Import(mustJSON(t, doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestImportMalformedJSON(t *testing.T) {
	_, err := NewImporter().Import([]byte(`{"prescription_id": `))
	require.Error(t, err)
	assert.Equal(t, "parse_error", importReason(err))
}

func TestImportKeepsGeometricallyInvalidZone(t *testing.T) {
	// a self-intersecting ring is structurally fine JSON; import keeps the
	// zone so generation can isolate it as a zone-level error
	doc := validDoc()
	doc["zones"].([]map[string]any)[0]["geometry"].(map[string]any)["coordinates"] =
		geoJSONPolygon(ringMeters([][2]float64{{0, 0}, {100, 100}, {100, 0}, {0, 100}}))

	p, err := NewImporter().Import(mustJSON(t, doc))
	require.NoError(t, err)
	assert.Len(t, p.Zones, 2)
}

func TestImportReasonLabels(t *testing.T) {
	for err, want := range map[error]string{
		ErrMissingField:            "missing_field",
		ErrEmptyPrescription:       "empty_prescription",
		ErrDuplicateZoneID:         "duplicate_zone_id",
		ErrUnsupportedGeometryType: "unsupported_geometry_type",
		ErrInvalidCoordinate:       "invalid_coordinate",
		ErrInvalidEnum:             "invalid_enum",
	} {
		assert.Equal(t, want, importReason(fmt.Errorf("wrapped: %w", err)))
	}
}
