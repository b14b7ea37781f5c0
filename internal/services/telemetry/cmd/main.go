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

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agribotlabs/agribot/internal/services/telemetry"
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

		InfluxURL    string
		InfluxToken  string
		InfluxOrg    string
		InfluxBucket string

		SubTopic       string
		AlertTopicTmpl string
		BatchSize      int
		FlushInterval  time.Duration

		HTTPPort       int
		ReadinessGrace time.Duration
	}{
		Broker: mqttbus.Config{
			Host:     envStr("MQTT_HOST", "localhost"),
			Port:     envInt("MQTT_PORT", 1883),
			User:     envStr("MQTT_USER", "guest"),
			Password: envStr("MQTT_PASSWORD", "guest"),
			ClientID: envStr("HOSTNAME", "telemetry-service"),
		},

		InfluxURL:    envStr("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  os.Getenv("INFLUX_TOKEN"),
		InfluxOrg:    envStr("INFLUX_ORG", "agribot"),
		InfluxBucket: envStr("INFLUX_BUCKET", "telemetry"),

		SubTopic:       envStr("TELEMETRY_SUB_TOPIC", "agribot/telemetry/#"),
		AlertTopicTmpl: envStr("ALERT_TOPIC_TEMPLATE", "agribot/alert/{device}"),
		BatchSize:      envInt("WRITE_BATCH_SIZE", 10),
		FlushInterval:  time.Duration(envInt("WRITE_FLUSH_INTERVAL_MS", 200)) * time.Millisecond,

		HTTPPort:       envInt("HTTP_PORT", 8080),
		ReadinessGrace: 5 * time.Second,
	}

	vcfg := telemetry.ValidatorConfig{
		MaxHDOPM:          envFloat("MAX_HDOP_M", 10.0),
		DoseDeviationFrac: envFloat("DOSE_DEVIATION_FRAC", 0.10),
		MinSpeedKmh:       envFloat("MIN_SPEED_KMH", 0),
		MaxSpeedKmh:       envFloat("MAX_SPEED_KMH", 50),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === InfluxDB ===
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(cfg.BatchSize)).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	influx := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, opts)
	defer influx.Close()
	writeAPI := influx.WriteAPI(cfg.InfluxOrg, cfg.InfluxBucket)
	writer := telemetry.NewWriter(writeAPI)

	// === MQTT ===
	mqttClient, err := mqttbus.NewConn(&cfg.Broker, ctx)
	if err != nil {
		log.Fatalf("mqtt connection error: %v", err)
	}
	defer mqttbus.Close(mqttClient)

	consumer := mqttbus.NewConsumer(mqttClient, cfg.SubTopic, nil)
	factory := func(topic string) mqttbus.IPublisher {
		return mqttbus.NewPublisher(mqttClient, topic)
	}

	validator := telemetry.NewValidator(vcfg)
	svc := telemetry.NewService(consumer, validator, writeAPI, writer, factory, cfg.AlertTopicTmpl)

	// === HTTP ===
	mux := http.NewServeMux()
	mux.Handle("/healthz", telemetry.NewHealthHandler(mqttClient, influx, writer))
	mux.Handle("/readyz", telemetry.NewReadyHandler(mqttClient, influx, writer, 2*time.Second))
	mux.Handle("/alerts/recent", telemetry.NewRecentAlertsHandler(influx, cfg.InfluxOrg, cfg.InfluxBucket))
	mux.Handle("/metrics", promhttp.Handler())

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("telemetry-svc: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	go svc.Start(ctx)
	log.Printf("telemetry-svc: consuming %s, alerts on %s", cfg.SubTopic, cfg.AlertTopicTmpl)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("telemetry-svc: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), cfg.ReadinessGrace)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
	cancel()

	// allow the async writer to flush
	time.Sleep(cfg.FlushInterval + 100*time.Millisecond)
}
