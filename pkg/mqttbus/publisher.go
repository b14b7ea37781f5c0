package mqttbus

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher publishes a serialized message to one topic.
type IPublisher interface {
	PublishMessage(payload []byte) error
	Close()
}

// Publisher binds the shared client to a single topic.
type Publisher struct {
	client mqtt.Client
	topic  string
}

func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// PublishMessage publishes with the QoS policy of the topic.
func (p *Publisher) PublishMessage(payload []byte) error {
	token := p.client.Publish(p.topic, QoSFor(p.topic), false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}
	return nil
}

// Close gracefully closes the MQTT connection for the publisher.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("MQTT client disconnected")
	}
}
