package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
)

// AlertDTO is the payload exposed to the gateway.
type AlertDTO struct {
	Kind      string  `json:"kind"`
	DeviceID  string  `json:"device_id"`
	ZoneID    string  `json:"zone_id,omitempty"`
	Magnitude float64 `json:"magnitude"`
	Time      string  `json:"time"` // RFC3339
}

type alertQueryParams struct {
	Minutes   int
	Limit     int
	TimeoutMS int
}

func parseAlertQuery(r *http.Request, defMin, defLim, defTOms int) alertQueryParams {
	q := r.URL.Query()
	get := func(k string, def, min, max int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < min {
					return min
				}
				if max > 0 && n > max {
					return max
				}
				return n
			}
		}
		return def
	}
	return alertQueryParams{
		Minutes:   get("minutes", defMin, 1, 7*24*60),
		Limit:     get("limit", defLim, 1, 500),
		TimeoutMS: get("timeout_ms", defTOms, 200, 5000),
	}
}

func buildAlertFlux(bucket string, minutes, limit int) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == "compliance_alert")
  |> filter(fn: (r) => r._field == "magnitude")
  |> keep(columns: ["_time","_value","kind","device_id","zone_id"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, minutes, limit)
}

func runAlertQuery(w http.ResponseWriter, r *http.Request, influx influxdb2.Client, org, bucket string, defMin, defLim int) {
	p := parseAlertQuery(r, defMin, defLim, 2000)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(p.TimeoutMS)*time.Millisecond)
	defer cancel()

	api := influx.QueryAPI(org)
	res, err := api.Query(ctx, buildAlertFlux(bucket, p.Minutes, p.Limit))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Error", "influx-query-error")
		_, _ = w.Write([]byte("[]"))
		return
	}
	defer func() { _ = res.Close() }()

	out := make([]AlertDTO, 0, p.Limit)
	for res.Next() {
		rec := res.Record()

		var magnitude float64
		switch v := rec.Value().(type) {
		case float64:
			magnitude = v
		case int64:
			magnitude = float64(v)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				magnitude = f
			}
		}

		strByKey := func(key string) string {
			if v := rec.ValueByKey(key); v != nil {
				if s, ok := v.(string); ok {
					return strings.TrimSpace(s)
				}
			}
			return ""
		}

		out = append(out, AlertDTO{
			Kind:      strByKey("kind"),
			DeviceID:  strByKey("device_id"),
			ZoneID:    strByKey("zone_id"),
			Magnitude: magnitude,
			Time:      rec.Time().UTC().Format(time.RFC3339),
		})
	}
	if res.Err() != nil {
		w.Header().Set("X-Error", "influx-iter-error")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// NewRecentAlertsHandler serves GET /alerts/recent?limit=20[&minutes=1440].
func NewRecentAlertsHandler(influx influxdb2.Client, org, bucket string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		runAlertQuery(w, r, influx, org, bucket, 1440, 20)
	})
}
