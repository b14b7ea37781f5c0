package mission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/agribotlabs/agribot/internal/model/entities"
	"github.com/agribotlabs/agribot/pkg/dedup"
	"github.com/agribotlabs/agribot/pkg/mqttbus"
)

// Service wires the importer and assembler to the broker: prescriptions in
// on prescription/import, missions out on mission/generated. The same
// pipeline also backs the HTTP generate endpoint.
type Service struct {
	importer  *Importer
	assembler *Assembler
	consumer  mqttbus.IConsumer
	publisher mqttbus.IPublisher
	deduper   *dedup.Deduper

	mu   sync.RWMutex
	last *entities.Mission
}

func NewService(consumer mqttbus.IConsumer, publisher mqttbus.IPublisher, cfg CoverageConfig) *Service {
	return &Service{
		importer:  NewImporter(),
		assembler: NewAssembler(cfg),
		consumer:  consumer,
		publisher: publisher,
		deduper:   dedup.New(10*time.Minute, 20000),
	}
}

// Start consumes prescription documents until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.handleMessage)
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handleMessage(topic string, msg mqtt.Message) error {
	// QoS1 redeliveries carry identical payloads
	if !s.deduper.ShouldProcess(dedup.PayloadKey(msg.Payload())) {
		return nil
	}
	m, err := s.GenerateFromDocument(msg.Payload())
	if err != nil {
		log.Printf("mission-svc: rejected prescription on %s: %v", topic, err)
		return nil // input errors must not wedge the stream
	}
	log.Printf("mission-svc: mission %s status=%s zones=%d waypoints=%d",
		m.ID, m.Status, m.Metadata.TotalZones, m.Metadata.TotalWaypoints)
	return nil
}

// GenerateFromDocument runs the full pipeline on one raw prescription
// document and publishes the resulting mission.
func (s *Service) GenerateFromDocument(data []byte) (*entities.Mission, error) {
	p, err := s.importer.Import(data)
	if err != nil {
		importFailures.WithLabelValues(importReason(err)).Inc()
		return nil, err
	}

	start := time.Now()
	m := s.assembler.Generate(p)
	generationSeconds.Observe(time.Since(start).Seconds())
	missionsGenerated.WithLabelValues(string(m.Status)).Inc()
	zoneFailures.Add(float64(len(m.ZoneErrors)))

	s.mu.Lock()
	s.last = m
	s.mu.Unlock()

	if s.publisher != nil {
		payload, err := json.Marshal(m)
		if err != nil {
			log.Printf("mission-svc: mission marshal error: %v", err)
		} else if err := s.publisher.PublishMessage(payload); err != nil {
			log.Printf("mission-svc: publish error: %v", err)
		}
	}
	return m, nil
}

// Latest returns the most recently generated mission, if any.
func (s *Service) Latest() *entities.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func importReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrEmptyPrescription):
		return "empty_prescription"
	case errors.Is(err, ErrDuplicateZoneID):
		return "duplicate_zone_id"
	case errors.Is(err, ErrUnsupportedGeometryType):
		return "unsupported_geometry_type"
	case errors.Is(err, ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, ErrInvalidEnum):
		return "invalid_enum"
	}
	return "parse_error"
}

// ===================== HTTP =====================

// HandleGenerate serves POST /missions/generate: prescription in, mission out.
func (s *Service) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, err := s.GenerateFromDocument(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":  err.Error(),
			"reason": importReason(err),
		})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m)
}

// HandleLatest serves GET /missions/latest.
func (s *Service) HandleLatest(w http.ResponseWriter, _ *http.Request) {
	m := s.Latest()
	if m == nil {
		http.Error(w, "no mission generated yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m)
}
