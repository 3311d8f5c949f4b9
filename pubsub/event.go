// Package pubsub publishes state change events from the pin server to
// interested listeners, e.g. an mqtt broker.
package pubsub

import (
	"encoding/json"
	"fmt"
	"time"
)

type Fields map[string]interface{}

type Event struct {
	Topic     string
	Timestamp time.Time
	Fields    Fields
	Retained  bool
}

func NewEvent(topic string, fields map[string]interface{}) *Event {
	if fields == nil {
		fields = Fields{}
	}
	timestamp := time.Now().UTC()
	return &Event{Topic: topic, Timestamp: timestamp, Fields: fields}
}

// NewPinEvent announces the value a pin has been set to. Pin events are
// retained, so a new subscriber sees the current level straight away.
func NewPinEvent(id int, name string, value float64) *Event {
	fields := Fields{
		"pin":   id,
		"name":  name,
		"value": value,
	}
	ev := NewEvent(fmt.Sprintf("pin/%d", id), fields)
	ev.SetRetained(true)
	return ev
}

const TimeFormat = "2006-01-02 15:04:05.000000"

func (event *Event) Map() map[string]interface{} {
	data := make(map[string]interface{})
	data["topic"] = event.Topic
	data["timestamp"] = event.Timestamp.Format(TimeFormat)
	for k, v := range event.Fields {
		data[k] = v
	}
	return data
}

func (event *Event) Bytes() []byte {
	v, _ := json.Marshal(event.Map())
	return v
}

func (event *Event) String() string {
	return string(event.Bytes())
}

func (event *Event) SetRetained(retained bool) {
	event.Retained = retained
}
