// Package stub is an in-memory driver for running the server away from the
// Raspberry Pi, and for tests.
package stub

import (
	"sync"

	"github.com/barnybug/pinserver/driver"
	"github.com/pkg/errors"
)

var ErrFault = errors.New("stub: injected fault")

// Pin is an output holding its last written value.
type Pin struct {
	mu    sync.Mutex
	value float64
	fail  bool
	// OnWrite, if set, is called before a write is applied. An error aborts the write.
	OnWrite func(value float64) error
}

func (self *Pin) Read() (float64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.value, nil
}

func (self *Pin) Write(value float64) error {
	if self.OnWrite != nil {
		if err := self.OnWrite(value); err != nil {
			return err
		}
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.fail {
		return ErrFault
	}
	self.value = value
	return nil
}

// Fail makes subsequent writes return ErrFault.
func (self *Pin) Fail(fail bool) {
	self.mu.Lock()
	self.fail = fail
	self.mu.Unlock()
}

// Channel is an input returning whatever was last Set.
type Channel struct {
	mu    sync.Mutex
	value float64
	fail  bool
}

func (self *Channel) Read() (float64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.fail {
		return 0, ErrFault
	}
	return self.value, nil
}

func (self *Channel) Set(value float64) {
	self.mu.Lock()
	self.value = value
	self.mu.Unlock()
}

// Fail makes subsequent reads return ErrFault.
func (self *Channel) Fail(fail bool) {
	self.mu.Lock()
	self.fail = fail
	self.mu.Unlock()
}

// Backend hands out one Pin or Channel per id, creating them on first use.
type Backend struct {
	mu       sync.Mutex
	Pins     map[int]*Pin
	Channels map[int]*Channel
}

func NewBackend() *Backend {
	return &Backend{
		Pins:     map[int]*Pin{},
		Channels: map[int]*Channel{},
	}
}

func (self *Backend) ID() string {
	return "stub"
}

func (self *Backend) Output(pin int) (driver.Output, error) {
	return self.Pin(pin), nil
}

func (self *Backend) Input(channel int) (driver.Input, error) {
	return self.Channel(channel), nil
}

func (self *Backend) Pin(pin int) *Pin {
	self.mu.Lock()
	defer self.mu.Unlock()
	if p, ok := self.Pins[pin]; ok {
		return p
	}
	p := &Pin{}
	self.Pins[pin] = p
	return p
}

func (self *Backend) Channel(channel int) *Channel {
	self.mu.Lock()
	defer self.mu.Unlock()
	if c, ok := self.Channels[channel]; ok {
		return c
	}
	c := &Channel{}
	self.Channels[channel] = c
	return c
}

func (self *Backend) Close() error {
	return nil
}
