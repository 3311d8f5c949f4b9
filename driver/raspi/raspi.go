// Package raspi drives GPIO outputs through /dev/gpiomem, for nodes that
// don't need the SPI bus.
package raspi

import (
	"log"
	"sync"

	"github.com/barnybug/ener314/rpio"
	"github.com/barnybug/pinserver/driver"
	"github.com/pkg/errors"
)

// BCM numbering stops at 27 on the 40 pin header.
const maxPin = 27

// line is the part of rpio.Pin used here.
type line interface {
	Output()
	Read() rpio.State
	Write(state rpio.State)
}

// Pin is a GPIO configured as an output.
type Pin struct {
	mu   sync.Mutex
	line line
}

func NewPin(l line) *Pin {
	l.Output()
	return &Pin{line: l}
}

func (self *Pin) Read() (float64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.line.Read() == rpio.High {
		return 1, nil
	}
	return 0, nil
}

func (self *Pin) Write(value float64) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	state := rpio.Low
	if value != 0 {
		state = rpio.High
	}
	self.line.Write(state)
	return nil
}

type Backend struct{}

// Open maps the GPIO registers. Close must be called to unmap them.
func Open() (*Backend, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "couldn't open /dev/gpiomem")
	}
	return &Backend{}, nil
}

func (self *Backend) ID() string {
	return "raspi"
}

func (self *Backend) Output(pin int) (driver.Output, error) {
	if pin > maxPin {
		return nil, errors.Errorf("GPIO%d out of range", pin)
	}
	log.Printf("Setting GPIO%d as output", pin)
	return NewPin(rpio.Pin(pin)), nil
}

func (self *Backend) Input(channel int) (driver.Input, error) {
	return nil, errors.New("raspi has no analog channels, use the periph driver")
}

func (self *Backend) Close() error {
	return rpio.Close()
}
