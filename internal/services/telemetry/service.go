package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/agribotlabs/agribot/internal/model/messages"
	"github.com/agribotlabs/agribot/pkg/dedup"
	"github.com/agribotlabs/agribot/pkg/mqttbus"
)

// PublisherFactory builds a publisher for a concrete topic, letting the
// service fan alerts out to per-device topics.
type PublisherFactory func(topic string) mqttbus.IPublisher

// Service consumes the per-device telemetry stream, validates every message,
// persists accepted ones and fans compliance alerts out to the broker and an
// in-process channel. Per-device ordering is preserved by the broker client's
// ordered callbacks; validation itself never blocks.
type Service struct {
	consumer       mqttbus.IConsumer
	validator      *Validator
	writeAPI       api.WriteAPI
	writer         *Writer
	makePublisher  PublisherFactory
	alertTopicTmpl string // e.g. "agribot/alert/{device}"
	deduper        *dedup.Deduper

	pubMu     sync.Mutex
	alertPubs map[string]mqttbus.IPublisher

	alertCh chan messages.ComplianceAlert
}

func NewService(
	consumer mqttbus.IConsumer,
	validator *Validator,
	writeAPI api.WriteAPI,
	writer *Writer,
	factory PublisherFactory,
	alertTopicTmpl string,
) *Service {
	if strings.TrimSpace(alertTopicTmpl) == "" {
		alertTopicTmpl = "agribot/alert/{device}"
	}
	return &Service{
		consumer:       consumer,
		validator:      validator,
		writeAPI:       writeAPI,
		writer:         writer,
		makePublisher:  factory,
		alertTopicTmpl: alertTopicTmpl,
		deduper:        dedup.New(2*time.Minute, 20000),
		alertPubs:      make(map[string]mqttbus.IPublisher),
		alertCh:        make(chan messages.ComplianceAlert, 256),
	}
}

// Alerts exposes raised alerts to in-process consumers. Sends never block:
// when nobody drains the channel, alerts are dropped here and still reach
// the broker and Influx.
func (s *Service) Alerts() <-chan messages.ComplianceAlert { return s.alertCh }

// Start consumes telemetry until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.handleMessage)
	s.consumer.ConsumeMessage(ctx)
}

func (s *Service) handleMessage(topic string, msg mqtt.Message) error {
	// QoS1 redelivery carries the same payload, same hash
	if !s.deduper.ShouldProcess(dedup.PayloadKey(msg.Payload())) {
		messagesProcessed.WithLabelValues("duplicate").Inc()
		return nil
	}

	m, err := ParseTelemetry(msg.Payload())
	if err != nil {
		messagesProcessed.WithLabelValues("malformed").Inc()
		log.Printf("telemetry-svc: invalid message on %s: %v", topic, err)
		return nil // never wedge the stream on bad input
	}

	res := s.validator.Validate(m)

	switch {
	case !res.Accepted:
		messagesProcessed.WithLabelValues("rejected").Inc()
	case res.Flagged:
		messagesProcessed.WithLabelValues("flagged").Inc()
	default:
		messagesProcessed.WithLabelValues("accepted").Inc()
	}

	// rejected messages are not stored; their alerts still are
	if res.Accepted && s.writeAPI != nil {
		s.writeAPI.WritePoint(TelemetryToPoint(m, res))
		s.writer.MarkIngest(measurementTelemetry)
	}

	for _, a := range res.Alerts {
		s.emitAlert(a)
	}
	return nil
}

func (s *Service) emitAlert(a messages.ComplianceAlert) {
	alertsRaised.WithLabelValues(string(a.Kind)).Inc()

	if s.writeAPI != nil {
		s.writeAPI.WritePoint(AlertToPoint(a))
		s.writer.MarkIngest(measurementAlert)
	}

	select {
	case s.alertCh <- a:
	default: // slow in-process consumer, drop locally
	}

	if s.makePublisher == nil {
		return
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.publisherFor(a.DeviceID).PublishMessage(payload); err != nil {
		log.Printf("telemetry-svc: alert publish error: %v", err)
	}
}

func (s *Service) publisherFor(deviceID string) mqttbus.IPublisher {
	topic := strings.ReplaceAll(s.alertTopicTmpl, "{device}", deviceID)
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if p, ok := s.alertPubs[topic]; ok {
		return p
	}
	p := s.makePublisher(topic)
	s.alertPubs[topic] = p
	return p
}
