// Package driver defines the capabilities the resource server needs from the
// hardware: read a value, and for outputs, write one.
package driver

// An Input can be read, e.g. an ADC channel.
type Input interface {
	Read() (float64, error)
}

// An Output is an Input that can also be written, e.g. a GPIO pin driving a relay.
type Output interface {
	Input
	Write(value float64) error
}

// A Backend opens handles for configured pin and channel ids.
type Backend interface {
	ID() string
	Output(pin int) (Output, error)
	Input(channel int) (Input, error)
	Close() error
}
