package mqtt

import (
	"github.com/barnybug/pinserver/pubsub"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

const qosAtLeastOnce = 1

// Publisher for mqtt
type Publisher struct {
	broker string
	prefix string
	client MQTT.Client
}

// ID of Publisher
func (pub *Publisher) ID() string {
	return "mqtt: " + pub.broker
}

// Emit an event
func (pub *Publisher) Emit(ev *pubsub.Event) error {
	topic := pub.prefix + "/" + ev.Topic
	token := pub.client.Publish(topic, qosAtLeastOnce, ev.Retained, ev.Bytes())
	token.Wait()
	return token.Error()
}
