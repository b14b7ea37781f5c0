package robot_simulator

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/agribotlabs/agribot/internal/model"
	"github.com/agribotlabs/agribot/pkg/dedup"
	"github.com/agribotlabs/agribot/pkg/mqttbus"
)

// RobotSimulator ties a TelemetryGenerator to the broker: it publishes one
// telemetry message per interval and listens for generated missions to follow.
type RobotSimulator struct {
	gen       *TelemetryGenerator
	publisher mqttbus.IPublisher
	missions  mqttbus.IConsumer // may be nil, simulator then free-runs
	deduper   *dedup.Deduper
	interval  time.Duration
}

func NewRobotSimulator(gen *TelemetryGenerator, pub mqttbus.IPublisher, missions mqttbus.IConsumer, interval time.Duration) *RobotSimulator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RobotSimulator{
		gen:       gen,
		publisher: pub,
		missions:  missions,
		deduper:   dedup.New(10*time.Minute, 1000),
		interval:  interval,
	}
}

// Start blocks until ctx is cancelled.
func (s *RobotSimulator) Start(ctx context.Context) {
	if s.missions != nil {
		s.missions.SetHandler(s.handleMission)
		go s.missions.ConsumeMessage(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishOne()
		}
	}
}

func (s *RobotSimulator) publishOne() {
	m := s.gen.Next()
	payload, err := json.Marshal(m)
	if err != nil {
		log.Printf("robot-sim: marshal error: %v", err)
		return
	}
	if err := s.publisher.PublishMessage(payload); err != nil {
		log.Printf("robot-sim: publish error: %v", err)
	}
}

func (s *RobotSimulator) handleMission(topic string, msg mqtt.Message) error {
	if !s.deduper.ShouldProcess(dedup.PayloadKey(msg.Payload())) {
		return nil
	}
	var m model.Mission
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		log.Printf("robot-sim: bad mission on %s: %v", topic, err)
		return nil
	}
	if m.Status != model.MissionReady {
		log.Printf("robot-sim: ignoring mission %s in status %s", m.ID, m.Status)
		return nil
	}
	s.gen.FollowMission(&m)
	log.Printf("robot-sim: following mission %s (%d zones, %d waypoints)",
		m.ID, m.Metadata.TotalZones, m.Metadata.TotalWaypoints)
	return nil
}
