package server

import (
	"math"
	"strings"

	"github.com/barnybug/pinserver/protocol"
	"github.com/barnybug/pinserver/resource"
)

// Verdict of validating an action. Reason is set when rejected.
type Verdict struct {
	Ok     bool
	Reason string
}

var accept = Verdict{Ok: true}

func reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Validator checks actions against the configured pins and channels. It never
// mutates anything and never panics on odd input.
type Validator struct {
	reg      *resource.Registry
	commands map[string]bool
}

// NewValidator accepts the catalogue types, plus extra commands which have no
// specific handler of their own.
func NewValidator(reg *resource.Registry, commands []string) *Validator {
	self := &Validator{reg: reg, commands: map[string]bool{}}
	for _, c := range commands {
		self.commands[strings.ToUpper(c)] = true
	}
	return self
}

func (self *Validator) Validate(action *protocol.Action) Verdict {
	if action == nil {
		return reject("no action")
	}
	switch action.Kind() {
	case protocol.SetPin:
		pin, ok := action.Params["pin"]
		if !ok || pin == nil {
			return reject("missing pin")
		}
		val, ok := action.Params["val"]
		if !ok || val == nil {
			return reject("missing val")
		}
		if isNumber(pin) != isNumber(val) {
			return reject("pin and val must both be numbers")
		}
		if !isLevel(val) {
			return reject("val must be 0 or 1")
		}
		return self.member(resource.Pin, pin)
	case protocol.GetPin:
		return self.member(resource.Pin, action.Params["pin"])
	case protocol.GetChannel:
		return self.member(resource.Channel, action.Params["channel"])
	case protocol.ListPins, protocol.ListChannels:
		return accept
	}
	if self.commands[strings.ToUpper(action.Type)] {
		return accept
	}
	return reject("unknown action type")
}

func (self *Validator) member(kind resource.Kind, v interface{}) Verdict {
	id, ok := toID(v)
	if !ok {
		return reject(kind.String() + " must be a non-negative integer")
	}
	if !self.reg.Has(kind, id) {
		return reject(kind.String() + " not configured")
	}
	return accept
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32:
		return true
	}
	return false
}

// isLevel reports whether v is a pin level, 0 or 1.
func isLevel(v interface{}) bool {
	f, ok := toFloat(v)
	return ok && (f == 0 || f == 1)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func toID(v interface{}) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
