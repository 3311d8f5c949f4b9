package resource

import (
	"github.com/barnybug/pinserver/config"
	"github.com/barnybug/pinserver/driver"
	"github.com/pkg/errors"
)

// FromConfig opens a driver handle for every configured pin and channel.
func FromConfig(conf *config.Config, backend driver.Backend) (*Registry, error) {
	b := NewBuilder()
	for _, id := range conf.PinIds() {
		out, err := backend.Output(id)
		if err != nil {
			return nil, errors.Wrapf(err, "%s pin %d", backend.ID(), id)
		}
		if err := b.AddPin(id, conf.PinName(id), out); err != nil {
			return nil, err
		}
	}
	for _, id := range conf.ChannelIds() {
		in, err := backend.Input(id)
		if err != nil {
			return nil, errors.Wrapf(err, "%s channel %d", backend.ID(), id)
		}
		if err := b.AddChannel(id, conf.ChannelName(id), in); err != nil {
			return nil, err
		}
	}
	return b.Registry(), nil
}
