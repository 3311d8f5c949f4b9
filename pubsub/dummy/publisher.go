package dummy

import (
	"sync"

	"github.com/barnybug/pinserver/pubsub"
)

// Dummy Publisher for testing
type Publisher struct {
	mu     sync.Mutex
	Events []*pubsub.Event
	Err    error
}

func (self *Publisher) ID() string {
	return "dummy"
}

func (self *Publisher) Emit(ev *pubsub.Event) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.Err != nil {
		return self.Err
	}
	self.Events = append(self.Events, ev)
	return nil
}

// Emitted returns a copy of the events so far.
func (self *Publisher) Emitted() []*pubsub.Event {
	self.mu.Lock()
	defer self.mu.Unlock()
	return append([]*pubsub.Event{}, self.Events...)
}
