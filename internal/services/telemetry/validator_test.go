package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agribotlabs/agribot/internal/model/messages"
)

func f64(v float64) *float64 { return &v }

func goodMessage() *messages.TelemetryMessage {
	return &messages.TelemetryMessage{
		DeviceID:  "AGB-001",
		Timestamp: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		GPS: messages.GPSFix{
			Lat:        44.6488,
			Lon:        10.9204,
			PrecisionM: 0.03,
		},
		SpeedKmh:   6.5,
		HeadingDeg: f64(92.0),
		Operation:  messages.OpFertilizerApplication,
		Status:     messages.StatusOperational,
	}
}

func TestParseTelemetry(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw, err := json.Marshal(goodMessage())
		require.NoError(t, err)
		m, err := ParseTelemetry(raw)
		require.NoError(t, err)
		assert.Equal(t, "AGB-001", m.DeviceID)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseTelemetry([]byte("not json"))
		assert.ErrorIs(t, err, ErrMalformedMessage)
	})

	t.Run("status defaults to operational", func(t *testing.T) {
		m := goodMessage()
		m.Status = ""
		raw, _ := json.Marshal(m)
		parsed, err := ParseTelemetry(raw)
		require.NoError(t, err)
		assert.Equal(t, messages.StatusOperational, parsed.Status)
	})

	cases := []struct {
		name   string
		mutate func(m *messages.TelemetryMessage)
		want   error
	}{
		{"missing device id", func(m *messages.TelemetryMessage) { m.DeviceID = "" }, ErrMissingDeviceID},
		{"missing timestamp", func(m *messages.TelemetryMessage) { m.Timestamp = time.Time{} }, ErrMissingTimestamp},
		{"latitude out of range", func(m *messages.TelemetryMessage) { m.GPS.Lat = 91 }, ErrInvalidPosition},
		{"longitude out of range", func(m *messages.TelemetryMessage) { m.GPS.Lon = -181 }, ErrInvalidPosition},
		{"non-positive precision", func(m *messages.TelemetryMessage) { m.GPS.PrecisionM = 0 }, ErrInvalidPosition},
		{"unknown operation", func(m *messages.TelemetryMessage) { m.Operation = "ploughing" }, ErrInvalidEnum},
		{"unknown status", func(m *messages.TelemetryMessage) { m.Status = "exploded" }, ErrInvalidEnum},
		{"battery above 100%", func(m *messages.TelemetryMessage) {
			m.DeviceHealth = &messages.DeviceHealth{BatteryPct: f64(130)}
		}, ErrMalformedMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := goodMessage()
			tc.mutate(m)
			raw, err := json.Marshal(m)
			require.NoError(t, err)
			_, err = ParseTelemetry(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateCleanMessage(t *testing.T) {
	res := NewValidator(ValidatorConfig{}).Validate(goodMessage())
	assert.True(t, res.Accepted)
	assert.False(t, res.Flagged)
	assert.Empty(t, res.Alerts)
}

func TestValidatePrecision(t *testing.T) {
	v := NewValidator(ValidatorConfig{})

	t.Run("degraded fix while operational is flagged", func(t *testing.T) {
		m := goodMessage()
		m.GPS.PrecisionM = 15.0
		res := v.Validate(m)

		assert.True(t, res.Accepted, "flagged messages are still stored")
		assert.True(t, res.Flagged)
		require.Len(t, res.Alerts, 1)
		a := res.Alerts[0]
		assert.Equal(t, messages.AlertPrecisionViolation, a.Kind)
		assert.Equal(t, "AGB-001", a.DeviceID)
		assert.InDelta(t, 15.0, a.Magnitude, 1e-9)
		assert.NotEmpty(t, a.ID)
	})

	t.Run("rtk-grade fix passes", func(t *testing.T) {
		m := goodMessage()
		m.GPS.PrecisionM = 0.03
		res := v.Validate(m)
		assert.False(t, res.Flagged)
		assert.Empty(t, res.Alerts)
	})

	t.Run("precision ignored in maintenance", func(t *testing.T) {
		m := goodMessage()
		m.GPS.PrecisionM = 15.0
		m.Status = messages.StatusMaintenance
		res := v.Validate(m)
		assert.False(t, res.Flagged)
		assert.Empty(t, res.Alerts)
	})
}

func TestValidateDoseDeviation(t *testing.T) {
	v := NewValidator(ValidatorConfig{})

	withDoses := func(prescribed, applied float64) *messages.TelemetryMessage {
		m := goodMessage()
		m.OperationData = &messages.OperationData{
			ZoneID:         "Z001",
			PrescribedDose: f64(prescribed),
			AppliedDose:    f64(applied),
		}
		return m
	}

	t.Run("17% over raises alert", func(t *testing.T) {
		res := v.Validate(withDoses(120, 140))
		assert.True(t, res.Accepted)
		assert.True(t, res.Flagged)
		require.Len(t, res.Alerts, 1)
		a := res.Alerts[0]
		assert.Equal(t, messages.AlertDoseDeviation, a.Kind)
		assert.Equal(t, "Z001", a.ZoneID)
		assert.InDelta(t, 20.0/120.0, a.Magnitude, 1e-9)
	})

	t.Run("under-application counts too", func(t *testing.T) {
		res := v.Validate(withDoses(120, 100))
		require.Len(t, res.Alerts, 1)
		assert.Equal(t, messages.AlertDoseDeviation, res.Alerts[0].Kind)
	})

	t.Run("within tolerance", func(t *testing.T) {
		res := v.Validate(withDoses(120, 125))
		assert.Empty(t, res.Alerts)
	})

	t.Run("missing figures skip the rule", func(t *testing.T) {
		m := goodMessage()
		m.OperationData = &messages.OperationData{ZoneID: "Z001", AppliedDose: f64(120)}
		assert.Empty(t, v.Validate(m).Alerts)
	})
}

func TestValidateFieldOutOfRange(t *testing.T) {
	v := NewValidator(ValidatorConfig{})

	t.Run("speed beyond ceiling rejects", func(t *testing.T) {
		m := goodMessage()
		m.SpeedKmh = 80
		res := v.Validate(m)
		assert.False(t, res.Accepted)
		require.Len(t, res.Alerts, 1)
		assert.Equal(t, messages.AlertFieldOutOfRange, res.Alerts[0].Kind)
	})

	t.Run("negative speed rejects", func(t *testing.T) {
		m := goodMessage()
		m.SpeedKmh = -1
		assert.False(t, v.Validate(m).Accepted)
	})

	t.Run("heading 360 rejects", func(t *testing.T) {
		m := goodMessage()
		m.HeadingDeg = f64(360)
		res := v.Validate(m)
		assert.False(t, res.Accepted)
		require.Len(t, res.Alerts, 1)
		assert.Equal(t, messages.AlertFieldOutOfRange, res.Alerts[0].Kind)
	})

	t.Run("nil heading is fine", func(t *testing.T) {
		m := goodMessage()
		m.HeadingDeg = nil
		assert.True(t, v.Validate(m).Accepted)
	})
}

func TestValidateOutOfOrder(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	first := goodMessage()
	first.Timestamp = base
	require.True(t, v.Validate(first).Accepted)

	t.Run("older timestamp is flagged, not rejected", func(t *testing.T) {
		late := goodMessage()
		late.Timestamp = base.Add(-30 * time.Second)
		res := v.Validate(late)

		assert.True(t, res.Accepted)
		assert.True(t, res.Flagged)
		require.Len(t, res.Alerts, 1)
		a := res.Alerts[0]
		assert.Equal(t, messages.AlertOutOfOrder, a.Kind)
		assert.InDelta(t, 30.0, a.Magnitude, 1e-9)
	})

	t.Run("watermark not regressed by the late message", func(t *testing.T) {
		next := goodMessage()
		next.Timestamp = base.Add(-10 * time.Second) // still before the first
		res := v.Validate(next)
		assert.True(t, res.Flagged, "watermark must stay at the newest accepted timestamp")
	})

	t.Run("devices are tracked independently", func(t *testing.T) {
		other := goodMessage()
		other.DeviceID = "AGB-002"
		other.Timestamp = base.Add(-time.Hour)
		res := v.Validate(other)
		assert.False(t, res.Flagged)
		assert.Empty(t, res.Alerts)
	})

	t.Run("rejected messages do not move the watermark", func(t *testing.T) {
		bad := goodMessage()
		bad.DeviceID = "AGB-003"
		bad.Timestamp = base.Add(time.Hour)
		bad.SpeedKmh = 200
		require.False(t, v.Validate(bad).Accepted)

		ok := goodMessage()
		ok.DeviceID = "AGB-003"
		ok.Timestamp = base
		res := v.Validate(ok)
		assert.True(t, res.Accepted)
		assert.False(t, res.Flagged)
	})
}

func TestValidatorConfigOverrides(t *testing.T) {
	v := NewValidator(ValidatorConfig{MaxHDOPM: 2.0, DoseDeviationFrac: 0.25, MaxSpeedKmh: 12})

	m := goodMessage()
	m.GPS.PrecisionM = 5.0 // above 2 m, below the stock 10 m
	res := v.Validate(m)
	assert.True(t, res.Flagged)

	m = goodMessage()
	m.SpeedKmh = 20
	assert.False(t, v.Validate(m).Accepted)

	m = goodMessage()
	m.OperationData = &messages.OperationData{PrescribedDose: f64(100), AppliedDose: f64(120)}
	assert.Empty(t, v.Validate(m).Alerts, "20%% deviation under the 25%% override")
}
