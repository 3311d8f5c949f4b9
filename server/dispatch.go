package server

import (
	"github.com/barnybug/pinserver/protocol"
	"github.com/pkg/errors"
)

var ErrUnmatched = errors.New("could not match command to handler")

// Dispatcher resolves an action type to a handler: the specific handler if
// one is registered, otherwise the default handler, otherwise ErrUnmatched.
type Dispatcher struct {
	handlers map[protocol.Type]Handler
	fallback Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[protocol.Type]Handler{}}
}

func (self *Dispatcher) Register(t protocol.Type, h Handler) {
	self.handlers[t] = h
}

// SetDefault sets the handler for types with no handler of their own. nil
// removes it.
func (self *Dispatcher) SetDefault(h Handler) {
	self.fallback = h
}

func (self *Dispatcher) Match(tag string) (Handler, error) {
	if t := protocol.ParseType(tag); t != protocol.Unknown {
		if h, ok := self.handlers[t]; ok {
			return h, nil
		}
	}
	if self.fallback != nil {
		return self.fallback, nil
	}
	return nil, errors.Wrap(ErrUnmatched, tag)
}

// Register the handler set for every catalogue type.
func (self *Handlers) Register(d *Dispatcher) {
	d.Register(protocol.SetPin, self.handleSetPin)
	d.Register(protocol.GetPin, self.handleGetPin)
	d.Register(protocol.ListPins, self.handleListPins)
	d.Register(protocol.GetChannel, self.handleGetChannel)
	d.Register(protocol.ListChannels, self.handleListChannels)
}
