package mqttbus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config describes the MQTT broker connection (mosquitto or any broker
// speaking plain MQTT 3.1.1).
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// NewConn dials the broker with exponential backoff and ties the connection
// lifetime to ctx.
func NewConn(cfg *Config, ctx context.Context) (mqtt.Client, error) {
	connAddr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true) // per-device ordering relies on ordered callbacks

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	maxRetries := 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Printf("mqtt connect failed: %v", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, uint64(maxRetries-1)))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Printf("connected to MQTT broker at %s", connAddr)

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Println("MQTT connection closed")
	}()

	return client, nil
}

// Close disconnects the shared client if still connected.
func Close(client mqtt.Client) {
	if client.IsConnected() {
		client.Disconnect(250)
		log.Println("MQTT connection successfully closed")
	}
}
