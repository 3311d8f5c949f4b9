package arduino

import (
	"bytes"
	"errors"
	"testing"

	"github.com/barnybug/pinserver/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Example_interfaces() {
	var _ driver.Backend = (*Board)(nil)
	var _ driver.Output = (*Relay)(nil)
	// Output:
}

type buffer struct {
	bytes.Buffer
	err error
}

func (self *buffer) Write(p []byte) (int, error) {
	if self.err != nil {
		return 0, self.err
	}
	return self.Buffer.Write(p)
}

func (self *buffer) Close() error { return nil }

func TestRelayCodes(t *testing.T) {
	dev := &buffer{}
	board := NewBoard(dev)
	r0, err := board.Output(0)
	require.NoError(t, err)
	r1, _ := board.Output(1)

	r0.Write(1)
	r1.Write(1)
	r0.Write(0)
	assert.Equal(t, "ACB", dev.String())

	v, _ := r1.Read()
	assert.Equal(t, 1.0, v)
	v, _ = r0.Read()
	assert.Equal(t, 0.0, v)
}

func TestRelayWriteError(t *testing.T) {
	dev := &buffer{err: errors.New("unplugged")}
	board := NewBoard(dev)
	r, _ := board.Output(2)
	assert.Error(t, r.Write(1))
	v, _ := r.Read()
	assert.Equal(t, 0.0, v)
}

func TestNoChannels(t *testing.T) {
	board := NewBoard(&buffer{})
	_, err := board.Input(0)
	assert.Error(t, err)
	_, err = board.Output(maxRelays)
	assert.Error(t, err)
}
