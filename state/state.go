// Package state persists the last known pin values, so outputs come back the
// way they were left after a restart.
package state

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Entry is a single {"<id>": value} mapping, as listed on the wire.
type Entry map[string]float64

func NewEntry(id int, value float64) Entry {
	return Entry{strconv.Itoa(id): value}
}

// State is the on-disk snapshot.
type State struct {
	Timestamp float64 `json:"timestamp"`
	Pins      []Entry `json:"pins"`
}

// Values flattens the entries to id -> value. Entries with a non-numeric id
// are skipped.
func (self *State) Values() map[int]float64 {
	ret := map[int]float64{}
	for _, entry := range self.Pins {
		for key, value := range entry {
			id, err := strconv.Atoi(key)
			if err != nil {
				log.Printf("Warning: ignoring state entry %q", key)
				continue
			}
			ret[id] = value
		}
	}
	return ret
}

func (self *State) Time() time.Time {
	sec := int64(self.Timestamp)
	nsec := int64((self.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Read the state file without modifying it. An empty file is the empty state.
func Read(path string) (*State, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state State
	if len(data) == 0 {
		return &state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "corrupt state file %s", path)
	}
	return &state, nil
}

// Load the state file. A missing file is created empty; an unreadable or
// corrupt one is logged. In both cases the empty state is returned, and
// resources start at their defaults.
func Load(path string) *State {
	state, err := Read(path)
	if os.IsNotExist(err) {
		log.Println("No state file, creating", path)
		if err := ioutil.WriteFile(path, nil, 0644); err != nil {
			log.Println("Warning: creating state file:", err)
		}
		return &State{}
	}
	if err != nil {
		log.Println("Warning:", err)
		return &State{}
	}
	return state
}

// Store saves snapshots to a file. Snapshots are taken before the store lock
// is acquired; a save never replaces a file written from a later snapshot.
type Store struct {
	path     string
	snapshot func() []Entry
	now      func() time.Time

	generation uint64
	mu         sync.Mutex
	written    uint64
}

func NewStore(path string, snapshot func() []Entry) *Store {
	return &Store{path: path, snapshot: snapshot, now: time.Now}
}

func (self *Store) Path() string {
	return self.path
}

// Save a full snapshot.
func (self *Store) Save() error {
	gen := atomic.AddUint64(&self.generation, 1)
	state := State{
		Timestamp: unixFloat(self.now()),
		Pins:      self.snapshot(),
	}

	self.mu.Lock()
	defer self.mu.Unlock()
	if gen < self.written {
		// a later snapshot is already on disk
		return nil
	}
	if err := writeFile(self.path, &state); err != nil {
		return err
	}
	self.written = gen
	return nil
}

func writeFile(path string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := ioutil.TempFile(dir, base+".tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing state")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "syncing state")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing state")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replacing state")
}
