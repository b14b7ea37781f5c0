package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agribotlabs/agribot/internal/model"
)

/************* MODELS (DTOs for the dashboard) *************/

type MissionSummary struct {
	MissionID      string  `json:"mission_id"`
	PrescriptionID string  `json:"prescription_id"`
	Status         string  `json:"status"`
	TotalZones     int     `json:"total_zones"`
	TotalWaypoints int     `json:"total_waypoints"`
	TotalAreaHa    float64 `json:"total_area_ha"`
	DurationMin    float64 `json:"estimated_total_duration_min"`
	FailedZones    int     `json:"failed_zones"`
}

type Alert struct {
	Kind      string  `json:"kind"`
	DeviceID  string  `json:"device_id"`
	ZoneID    string  `json:"zone_id,omitempty"`
	Magnitude float64 `json:"magnitude"`
	Time      string  `json:"time"` // RFC3339
}

type Payload struct {
	Mission *MissionSummary `json:"mission"`
	Alerts  []Alert         `json:"alerts"`
}

/************* UPSTREAM REST CLIENT *************/

type Upstream struct {
	http    *http.Client
	timeout time.Duration
}

func NewUpstream(timeoutMs int) *Upstream {
	return &Upstream{
		http:    &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		timeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

func (u *Upstream) getJSON(ctx context.Context, url string, out any) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := u.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("GET %s -> %s", url, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Mission-Service: latest generated mission
func (u *Upstream) GetLatestMission(ctx context.Context, base string) (*MissionSummary, error) {
	var m model.Mission
	if err := u.getJSON(ctx, base+"/missions/latest", &m); err != nil {
		return nil, err
	}
	return &MissionSummary{
		MissionID:      m.ID,
		PrescriptionID: m.PrescriptionID,
		Status:         string(m.Status),
		TotalZones:     m.Metadata.TotalZones,
		TotalWaypoints: m.Metadata.TotalWaypoints,
		TotalAreaHa:    m.Metadata.TotalAreaHa,
		DurationMin:    m.Metadata.EstTotalDurations,
		FailedZones:    len(m.ZoneErrors),
	}, nil
}

// Telemetry-Service: recent compliance alerts
func (u *Upstream) GetAlerts(ctx context.Context, base string) ([]Alert, error) {
	var out []Alert
	if err := u.getJSON(ctx, base+"/alerts/recent", &out); err != nil {
		return nil, err
	}
	return out, nil
}

/************* MAIN *************/

var (
	missionCB   *gobreaker.CircuitBreaker
	telemetryCB *gobreaker.CircuitBreaker

	lastGoodMission *MissionSummary
	lastGoodAlerts  []Alert
)

func mkCB(name string, fails, openMs, intervalMs int) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: time.Duration(intervalMs) * time.Millisecond,
		Timeout:  time.Duration(openMs) * time.Millisecond,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
	})
}

func main() {
	cfg := loadConfig()

	missionCB = mkCB("mission-service", cfg.CBFails, cfg.CBOpenMs, cfg.CBIntervalMs)
	telemetryCB = mkCB("telemetry-service", cfg.CBFails, cfg.CBOpenMs, cfg.CBIntervalMs)

	http.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	http.HandleFunc("/dashboard/data", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(cfg.TimeoutMs)*time.Millisecond)
		defer cancel()

		up := NewUpstream(cfg.TimeoutMs)

		// mission summary, with last-good fallback when the breaker is open
		var mission *MissionSummary
		if res, err := missionCB.Execute(func() (any, error) {
			return up.GetLatestMission(ctx, cfg.MissionURL)
		}); err == nil {
			mission = res.(*MissionSummary)
			lastGoodMission = mission
		} else {
			mission = lastGoodMission
		}

		var alerts []Alert
		if res, err := telemetryCB.Execute(func() (any, error) {
			a, err := up.GetAlerts(ctx, cfg.TelemetryURL)
			if err != nil {
				return nil, err
			}
			return a, nil
		}); err == nil {
			alerts = res.([]Alert)
			lastGoodAlerts = alerts
		} else {
			alerts = lastGoodAlerts
		}

		resp := Payload{Mission: mission, Alerts: alerts}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)

		log.Printf("GET /dashboard/data [%dms] cb[mission]=%v cb[telemetry]=%v alerts=%d",
			time.Since(start).Milliseconds(), missionCB.State(), telemetryCB.State(), len(resp.Alerts))
	})

	addr := ":" + cfg.Port
	log.Printf("gateway listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
