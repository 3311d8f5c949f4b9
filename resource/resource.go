// Package resource holds the registry of pins and channels a node exposes,
// each guarded by its own lock.
package resource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/barnybug/pinserver/driver"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("resource not found")

type Kind int

const (
	Pin Kind = iota
	Channel
)

func (k Kind) String() string {
	switch k {
	case Pin:
		return "pin"
	case Channel:
		return "channel"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the discriminators "p" and "c" (any case), or the full name.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "p", "pin":
		return Pin, true
	case "c", "channel":
		return Channel, true
	}
	return 0, false
}

// Resource is one pin or channel. Value is only touched with the lock held.
type Resource struct {
	Kind  Kind
	ID    int
	Name  string
	mu    sync.Mutex
	value float64
	in    driver.Input
	out   driver.Output
}

func (self *Resource) String() string {
	return fmt.Sprintf("%s %d (%s)", self.Kind, self.ID, self.Name)
}

// Lock the resource. Callers must not hold any other lock while waiting.
func (self *Resource) Lock() {
	self.mu.Lock()
}

func (self *Resource) Unlock() {
	self.mu.Unlock()
}

// Value is the last value read or written. Lock must be held.
func (self *Resource) Value() float64 {
	return self.value
}

// Read from the driver, updating the cached value. Lock must be held.
func (self *Resource) Read() (float64, error) {
	v, err := self.in.Read()
	if err != nil {
		return self.value, errors.Wrapf(err, "reading %s", self)
	}
	self.value = v
	return v, nil
}

// Write through the driver. On failure the cached value is unchanged. Lock must be held.
func (self *Resource) Write(value float64) error {
	if self.out == nil {
		return errors.Errorf("%s is not an output", self)
	}
	if err := self.out.Write(value); err != nil {
		return errors.Wrapf(err, "writing %s", self)
	}
	self.value = value
	return nil
}

type key struct {
	kind Kind
	id   int
}

// Registry maps (kind, id) to resources. It is built once and never changes,
// so lookups need no locking.
type Registry struct {
	resources map[key]*Resource
	ids       map[Kind][]int
}

// Builder collects resources before the registry is frozen.
type Builder struct {
	reg *Registry
}

func NewBuilder() *Builder {
	return &Builder{&Registry{
		resources: map[key]*Resource{},
		ids:       map[Kind][]int{},
	}}
}

func (self *Builder) add(r *Resource) error {
	k := key{r.Kind, r.ID}
	if _, exists := self.reg.resources[k]; exists {
		return errors.Errorf("duplicate %s %d", r.Kind, r.ID)
	}
	if r.ID < 0 {
		return errors.Errorf("negative %s id %d", r.Kind, r.ID)
	}
	self.reg.resources[k] = r
	self.reg.ids[r.Kind] = append(self.reg.ids[r.Kind], r.ID)
	return nil
}

// AddPin registers an output pin.
func (self *Builder) AddPin(id int, name string, out driver.Output) error {
	return self.add(&Resource{Kind: Pin, ID: id, Name: name, in: out, out: out})
}

// AddChannel registers an input channel.
func (self *Builder) AddChannel(id int, name string, in driver.Input) error {
	return self.add(&Resource{Kind: Channel, ID: id, Name: name, in: in})
}

// Registry freezes and returns the registry. The builder must not be used afterwards.
func (self *Builder) Registry() *Registry {
	for _, ids := range self.reg.ids {
		sort.Ints(ids)
	}
	return self.reg
}

// Get the resource, or ErrNotFound.
func (self *Registry) Get(kind Kind, id int) (*Resource, error) {
	if r, ok := self.resources[key{kind, id}]; ok {
		return r, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "%s %d", kind, id)
}

// Has reports whether id is configured for kind.
func (self *Registry) Has(kind Kind, id int) bool {
	_, ok := self.resources[key{kind, id}]
	return ok
}

// IDs of the given kind, ascending. The slice must not be modified.
func (self *Registry) IDs(kind Kind) []int {
	return self.ids[kind]
}
