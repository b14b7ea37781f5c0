package mqttbus

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IConsumer subscribes to a topic and dispatches messages to a handler.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler func(topic string, message mqtt.Message) error)
}

// Consumer holds the shared client and one subscription.
type Consumer struct {
	client  mqtt.Client
	handler func(topic string, message mqtt.Message) error
	topic   string
}

func NewConsumer(client mqtt.Client, topic string, handler func(topic string, message mqtt.Message) error) *Consumer {
	return &Consumer{client: client, topic: topic, handler: handler}
}

func (c *Consumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	c.handler = handler
}

// QoSFor returns the delivery guarantee per topic family. Telemetry,
// prescriptions and missions must survive a broker hiccup (QoS1, with
// payload dedup on the consumer side); alerts and dashboard traffic are
// fire-and-forget.
func QoSFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "agribot/telemetry") ||
		strings.HasPrefix(t, "prescription/import") ||
		strings.HasPrefix(t, "mission/generated") {
		return 1
	}
	return 0
}

// ConsumeMessage subscribes and processes messages until ctx is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	token := c.client.Subscribe(
		c.topic,
		QoSFor(c.topic),
		func(client mqtt.Client, message mqtt.Message) {
			if c.handler == nil {
				log.Printf("no handler set for topic %s", c.topic)
				return
			}
			if err := c.handler(message.Topic(), message); err != nil {
				log.Printf("error handling message on %s: %v", message.Topic(), err)
			}
		},
	)

	if token.Wait() && token.Error() != nil {
		log.Printf("error subscribing to topic %s: %v", c.topic, token.Error())
		return
	}
	log.Printf("subscribed to topic %s", c.topic)

	<-ctx.Done()

	unsubToken := c.client.Unsubscribe(c.topic)
	unsubToken.Wait()
}

// MultiConsumer subscribes the same handler to several topics.
type MultiConsumer struct {
	client  mqtt.Client
	topics  []string
	handler func(topic string, message mqtt.Message) error
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler func(topic string, message mqtt.Message) error) *MultiConsumer {
	return &MultiConsumer{client: client, topics: topics, handler: handler}
}

func (m *MultiConsumer) SetHandler(handler func(topic string, message mqtt.Message) error) {
	m.handler = handler
}

func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range m.topics {
		token := m.client.Subscribe(
			topic,
			QoSFor(topic),
			func(client mqtt.Client, msg mqtt.Message) {
				if m.handler == nil {
					log.Printf("no handler set for topic %s", msg.Topic())
					return
				}
				if err := m.handler(msg.Topic(), msg); err != nil {
					log.Printf("error handling message on %s: %v", msg.Topic(), err)
				}
			},
		)
		token.Wait()
		if token.Error() != nil {
			log.Printf("error subscribing to topic %s: %v", topic, token.Error())
		} else {
			log.Printf("subscribed to topic %s", topic)
		}
	}

	<-ctx.Done()

	for _, topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}
