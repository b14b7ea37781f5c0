package main

import (
	"os"
	"strconv"
)

type Config struct {
	Port      string
	TimeoutMs int

	// Upstream microservices
	MissionURL   string // e.g. http://mission-service:8080
	TelemetryURL string // e.g. http://telemetry-service:8080

	// Circuit breaker tuning
	CBFails      int
	CBOpenMs     int
	CBIntervalMs int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func loadConfig() Config {
	return Config{
		Port:      getenv("PORT", "5009"),
		TimeoutMs: getenvInt("TIMEOUT_MS", 3000),

		MissionURL:   getenv("MISSION_URL", "http://mission-service:8080"),
		TelemetryURL: getenv("TELEMETRY_URL", "http://telemetry-service:8080"),

		CBFails:      getenvInt("CB_FAILS", 3),
		CBOpenMs:     getenvInt("CB_OPEN_MS", 10000),
		CBIntervalMs: getenvInt("CB_INTERVAL_MS", 60000),
	}
}
