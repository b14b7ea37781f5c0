package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agribotlabs/agribot/internal/services/mission"
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
	cfg := struct {
		Broker mqttbus.Config

		SubTopic string
		PubTopic string

		HTTPPort int
	}{
		Broker: mqttbus.Config{
			Host:     envStr("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", "guest"),
			Password: envStr("MQTT_PASSWORD", "guest"),
			ClientID: envStr("HOSTNAME", "mission-service"),
		},
		SubTopic: envStr("PRESCRIPTION_SUB_TOPIC", "prescription/import"),
		PubTopic: envStr("MISSION_PUB_TOPIC", "mission/generated"),
		HTTPPort: envInt("HTTP_PORT", 8080),
	}

	coverage := mission.CoverageConfig{
		ImplementWidthM:    envFloat("IMPLEMENT_WIDTH_M", 12.0),
		VelocityReformMS:   envFloat("VELOCITY_REFORM_MS", 1.2),
		VelocityMaintainMS: envFloat("VELOCITY_MAINTAIN_MS", 1.8),
		VelocityDefaultMS:  envFloat("VELOCITY_DEFAULT_MS", 1.5),
		TurnTimeS:          envFloat("TURN_TIME_S", 15.0),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mqttClient, err := mqttbus.NewConn(&cfg.Broker, ctx)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqttbus.Close(mqttClient)

	consumer := mqttbus.NewConsumer(mqttClient, cfg.SubTopic, nil)
	publisher := mqttbus.NewPublisher(mqttClient, cfg.PubTopic)

	svc := mission.NewService(consumer, publisher, coverage)

	mux := http.NewServeMux()
	mux.HandleFunc("/missions/generate", svc.HandleGenerate)
	mux.HandleFunc("/missions/latest", svc.HandleLatest)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("mission-svc: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go svc.Start(ctx)
	log.Printf("mission-svc: consuming prescriptions on %s, publishing missions on %s",
		cfg.SubTopic, cfg.PubTopic)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("mission-svc: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
	cancel()
}
