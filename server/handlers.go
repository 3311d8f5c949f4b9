package server

import (
	"log"
	"strconv"

	"github.com/barnybug/pinserver/protocol"
	"github.com/barnybug/pinserver/resource"
	"github.com/barnybug/pinserver/state"
	"github.com/pkg/errors"
)

// Handlers act on the registry. Each holds at most one resource lock at a
// time, and only for the duration of a single driver call.
type Handlers struct {
	reg *resource.Registry
}

func NewHandlers(reg *resource.Registry) *Handlers {
	return &Handlers{reg: reg}
}

// SetPin writes val to a pin and returns the level read back from it, which
// is what the driver actually set. If the write fails the error is not
// returned: the pin's current value is read back instead, and changed is false.
func (self *Handlers) SetPin(id int, val float64) (entry state.Entry, changed bool, err error) {
	r, err := self.reg.Get(resource.Pin, id)
	if err != nil {
		return nil, false, err
	}
	r.Lock()
	defer r.Unlock()
	log.Printf("Setting %s to %v", r, val)
	if err := r.Write(val); err != nil {
		log.Println("Warning: write failed:", err)
		current, rerr := r.Read()
		if rerr != nil {
			log.Println("Warning: read back failed:", rerr)
		}
		return state.NewEntry(id, current), false, nil
	}
	level, err := r.Read()
	if err != nil {
		log.Println("Warning: read back failed:", err)
		level = val
	}
	return state.NewEntry(id, level), true, nil
}

func (self *Handlers) get(kind resource.Kind, id int) (state.Entry, error) {
	r, err := self.reg.Get(kind, id)
	if err != nil {
		return nil, err
	}
	r.Lock()
	defer r.Unlock()
	v, err := r.Read()
	if err != nil {
		return nil, err
	}
	return state.NewEntry(id, v), nil
}

func (self *Handlers) GetPin(id int) (state.Entry, error) {
	return self.get(resource.Pin, id)
}

func (self *Handlers) GetChannel(id int) (state.Entry, error) {
	return self.get(resource.Channel, id)
}

// list reads each resource in turn, locking them one at a time. The result
// is not a single point-in-time view across resources.
func (self *Handlers) list(kind resource.Kind) []state.Entry {
	ret := []state.Entry{}
	for _, id := range self.reg.IDs(kind) {
		entry, err := self.get(kind, id)
		if err != nil {
			if errors.Cause(err) == resource.ErrNotFound {
				log.Printf("Warning: %s %d vanished from registry, skipping", kind, id)
			} else {
				log.Printf("Warning: skipping %s %d: %s", kind, id, err)
			}
			continue
		}
		ret = append(ret, entry)
	}
	return ret
}

func (self *Handlers) ListPins() []state.Entry {
	return self.list(resource.Pin)
}

func (self *Handlers) ListChannels() []state.Entry {
	return self.list(resource.Channel)
}

// Result of a dispatched action.
type Result struct {
	Data map[string]interface{}
	// Changed is set when a pin was written, and the state needs saving.
	Changed *Change
}

type Change struct {
	ID    int
	Value float64
}

// Handler implements one action type.
type Handler func(action *protocol.Action) (*Result, error)

func data(key string, value interface{}) *Result {
	return &Result{Data: map[string]interface{}{key: value}}
}

func idParam(action *protocol.Action, name string) (int, error) {
	id, ok := toID(action.Params[name])
	if !ok {
		return 0, errors.Errorf("bad %s parameter: %v", name, action.Params[name])
	}
	return id, nil
}

func (self *Handlers) handleSetPin(action *protocol.Action) (*Result, error) {
	id, err := idParam(action, "pin")
	if err != nil {
		return nil, err
	}
	val, ok := toFloat(action.Params["val"])
	if !ok {
		return nil, errors.Errorf("bad val parameter: %v", action.Params["val"])
	}
	entry, changed, err := self.SetPin(id, val)
	if err != nil {
		return nil, err
	}
	result := data("pin", entry)
	if changed {
		result.Changed = &Change{ID: id, Value: entry[strconv.Itoa(id)]}
	}
	return result, nil
}

func (self *Handlers) handleGetPin(action *protocol.Action) (*Result, error) {
	id, err := idParam(action, "pin")
	if err != nil {
		return nil, err
	}
	entry, err := self.GetPin(id)
	if err != nil {
		return nil, err
	}
	return data("pin", entry), nil
}

func (self *Handlers) handleGetChannel(action *protocol.Action) (*Result, error) {
	id, err := idParam(action, "channel")
	if err != nil {
		return nil, err
	}
	entry, err := self.GetChannel(id)
	if err != nil {
		return nil, err
	}
	return data("channel", entry), nil
}

func (self *Handlers) handleListPins(action *protocol.Action) (*Result, error) {
	return data("pins", self.ListPins()), nil
}

func (self *Handlers) handleListChannels(action *protocol.Action) (*Result, error) {
	return data("channels", self.ListChannels()), nil
}

// Echo returns the action back to the client.
func Echo(action *protocol.Action) (*Result, error) {
	params := action.Params
	if params == nil {
		params = protocol.Params{}
	}
	return &Result{Data: map[string]interface{}{
		"type":   action.Type,
		"params": params,
	}}, nil
}
