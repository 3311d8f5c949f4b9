// Package arduino drives a bank of relays on a serial-attached arduino.
//
// The sketch switches relays based on received ASCII code: 65=relay #0 on,
// 66=relay #0 off, 67=relay #1 on, etc. The board never reports state, so a
// relay reads back the level last written to it.
package arduino

import (
	"io"
	"log"
	"path/filepath"
	"sync"

	"github.com/barnybug/pinserver/driver"
	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

const maxRelays = 30

func DefaultDevName() string {
	matches, _ := filepath.Glob("/dev/arduino_*")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}

// Board is the serial line shared by every relay.
type Board struct {
	mu     sync.Mutex
	dev    io.WriteCloser
	levels map[int]float64
}

func NewBoard(dev io.WriteCloser) *Board {
	return &Board{dev: dev, levels: map[int]float64{}}
}

func Open(devname string, baud int) (*Board, error) {
	if devname == "" {
		devname = DefaultDevName()
	}
	c := &serial.Config{Name: devname, Baud: baud}
	dev, err := serial.OpenPort(c)
	if err != nil {
		return nil, errors.Wrapf(err, "opening serial port %s", devname)
	}
	return NewBoard(dev), nil
}

func code(relay int, state bool) []byte {
	// on = 'A' + 2n, off = on + 1
	c := byte('A' + 2*relay)
	if !state {
		c++
	}
	return []byte{c}
}

func (self *Board) set(relay int, value float64) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	state := value != 0
	log.Println("Sending:", string(code(relay, state)), state)
	if _, err := self.dev.Write(code(relay, state)); err != nil {
		return errors.Wrapf(err, "switching relay %d", relay)
	}
	if state {
		self.levels[relay] = 1
	} else {
		self.levels[relay] = 0
	}
	return nil
}

func (self *Board) level(relay int) float64 {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.levels[relay]
}

func (self *Board) ID() string {
	return "arduino"
}

func (self *Board) Output(pin int) (driver.Output, error) {
	if pin >= maxRelays {
		return nil, errors.Errorf("relay %d out of range", pin)
	}
	return &Relay{self, pin}, nil
}

func (self *Board) Input(channel int) (driver.Input, error) {
	return nil, errors.New("arduino relay board has no analog channels")
}

func (self *Board) Close() error {
	return self.dev.Close()
}

// Relay is one output on the board.
type Relay struct {
	board *Board
	n     int
}

func (self *Relay) Read() (float64, error) {
	return self.board.level(self.n), nil
}

func (self *Relay) Write(value float64) error {
	return self.board.set(self.n, value)
}
