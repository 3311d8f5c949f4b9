// Package periph drives Raspberry Pi GPIO pins and an MCP3008 ADC through
// periph.io. Pins are addressed by BCM number.
package periph

import (
	"fmt"
	"sync"

	"github.com/barnybug/pinserver/driver"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Pin is a GPIO configured as an output.
type Pin struct {
	pin gpio.PinIO
}

func (self *Pin) Read() (float64, error) {
	if self.pin.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

func (self *Pin) Write(value float64) error {
	level := gpio.Low
	if value != 0 {
		level = gpio.High
	}
	return errors.Wrapf(self.pin.Out(level), "writing %s", self.pin.Name())
}

// ADC is an MCP3008 on an SPI port. Channels share the bus, so transfers are
// serialised here.
type ADC struct {
	mu   sync.Mutex
	port spi.PortCloser
	conn spi.Conn
}

const adcMax = 1023

func OpenADC(name string) (*ADC, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "opening spi")
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, errors.Wrap(err, "connecting spi")
	}
	return &ADC{port: port, conn: conn}, nil
}

// Sample reads a single-ended channel, normalised to 0..1.
func (self *ADC) Sample(channel int) (float64, error) {
	w := []byte{0x01, byte(0x08|channel) << 4, 0x00}
	r := make([]byte, len(w))
	self.mu.Lock()
	err := self.conn.Tx(w, r)
	self.mu.Unlock()
	if err != nil {
		return 0, errors.Wrapf(err, "sampling channel %d", channel)
	}
	raw := int(r[1]&0x03)<<8 | int(r[2])
	return float64(raw) / adcMax, nil
}

func (self *ADC) Close() error {
	return self.port.Close()
}

// Channel is one ADC input.
type Channel struct {
	adc     *ADC
	channel int
}

func (self *Channel) Read() (float64, error) {
	return self.adc.Sample(self.channel)
}

// Backend opens pins from the gpio registry and channels from a lazily opened ADC.
type Backend struct {
	spi string
	mu  sync.Mutex
	adc *ADC
}

func NewBackend(spiPort string) (*Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initialising periph host")
	}
	return &Backend{spi: spiPort}, nil
}

func (self *Backend) ID() string {
	return "periph"
}

func (self *Backend) Output(pin int) (driver.Output, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, errors.Errorf("no such gpio: %d", pin)
	}
	return &Pin{p}, nil
}

func (self *Backend) Input(channel int) (driver.Input, error) {
	if channel > 7 {
		return nil, errors.Errorf("mcp3008 has no channel %d", channel)
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.adc == nil {
		adc, err := OpenADC(self.spi)
		if err != nil {
			return nil, err
		}
		self.adc = adc
	}
	return &Channel{self.adc, channel}, nil
}

func (self *Backend) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.adc != nil {
		return self.adc.Close()
	}
	return nil
}
