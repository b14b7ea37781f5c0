package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/agribotlabs/agribot/internal/model/messages"
	robotsim "github.com/agribotlabs/agribot/internal/robot-simulator"
	"github.com/agribotlabs/agribot/pkg/mqttbus"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func main() {
	deviceID := envStr("DEVICE_ID", "AGB-001")
	startLat := envFloat("START_LAT", 44.6488)
	startLon := envFloat("START_LON", 10.9204)
	operation := messages.OperationType(envStr("OPERATION", string(messages.OpFertilizerApplication)))
	interval := time.Duration(envInt("PUBLISH_INTERVAL_S", 5)) * time.Second

	broker := mqttbus.Config{
		Host:     envStr("MQTT_HOST", "localhost"),
		Port:     envInt("MQTT_PORT", 1883),
		User:     envStr("MQTT_USER", "guest"),
		Password: envStr("MQTT_PASSWORD", "guest"),
		ClientID: envStr("HOSTNAME", "robot-sim-"+deviceID),
	}
	telemetryTopic := envStr("TELEMETRY_PUB_TOPIC", "agribot/telemetry/"+deviceID)
	missionTopic := envStr("MISSION_SUB_TOPIC", "mission/generated")

	if !operation.Valid() {
		log.Fatalf("robot-sim: invalid OPERATION %q", operation)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mqttClient, err := mqttbus.NewConn(&broker, ctx)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqttbus.Close(mqttClient)

	gen := robotsim.NewTelemetryGenerator(deviceID, startLat, startLon, operation)
	pub := mqttbus.NewPublisher(mqttClient, telemetryTopic)
	missions := mqttbus.NewConsumer(mqttClient, missionTopic, nil)

	sim := robotsim.NewRobotSimulator(gen, pub, missions, interval)
	go sim.Start(ctx)
	log.Printf("robot-sim: %s publishing to %s every %s (operation=%s)",
		deviceID, telemetryTopic, interval, operation)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("robot-sim: shutting down...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
