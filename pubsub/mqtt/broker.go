package mqtt

import (
	"fmt"
	"math/rand"
	"os"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

type Broker struct {
	broker string
	client MQTT.Client
}

func createClient(broker string) (MQTT.Client, error) {
	// generate a client id
	hostname, _ := os.Hostname()
	pid := os.Getpid()
	r := rand.Int()
	clientId := fmt.Sprintf("pinserver/%s-%d-%d", hostname, pid, r)
	opts := MQTT.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientId)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	client := MQTT.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connecting to mqtt %s", broker)
	}
	return client, nil
}

func NewBroker(broker string) (*Broker, error) {
	client, err := createClient(broker)
	if err != nil {
		return nil, err
	}
	return &Broker{broker, client}, nil
}

func (self *Broker) ID() string {
	return "mqtt: " + self.broker
}

// Publisher putting all topics under prefix/.
func (self *Broker) Publisher(prefix string) *Publisher {
	return &Publisher{broker: self.broker, prefix: prefix, client: self.client}
}

func (self *Broker) Close() {
	self.client.Disconnect(250)
}
