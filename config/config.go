// Package config loads the pinserver yaml configuration: the listening
// endpoint, the worker pool, the hardware driver and the static set of pins
// and channels exposed by the node.
package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"sort"
	"time"

	"github.com/barnybug/pinserver/util"
	"github.com/pkg/errors"

	"gopkg.in/yaml.v2"
)

type Duration struct {
	Duration time.Duration
}

func (self *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value string
	if err := unmarshal(&value); err != nil {
		return err
	}
	val, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrapf(err, "bad duration %q", value)
	}
	self.Duration = val
	return nil
}

func (self Duration) MarshalYAML() (interface{}, error) {
	return self.Duration.String(), nil
}

type DriverConf struct {
	Name   string
	Device string
	Baud   int
	Spi    string
}

type MqttConf struct {
	Broker string
	Topic  string
}

// Configuration structure
type Config struct {
	// yaml fields
	Listen          string
	Workers         int
	Backlog         int
	Read_Timeout    Duration
	Max_Message     int
	State           string
	Default_Handler string
	Commands        []string
	Driver          DriverConf
	Pins            map[string]int
	Channels        map[string]int
	Mqtt            MqttConf
}

const (
	DefaultListen     = "localhost:50007"
	DefaultWorkers    = 5
	DefaultBacklog    = 64
	DefaultMaxMessage = 64 * 1024
	DefaultTimeout    = 10 * time.Second
)

// Open configuration from disk.
func Open(filename string) (*Config, error) {
	file, err := os.Open(util.ExpandUser(filename))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return OpenReader(file)
}

// Open configuration from a reader.
func OpenReader(r io.Reader) (*Config, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenRaw(data)
}

// Open configuration from []byte.
func OpenRaw(data []byte) (*Config, error) {
	self := &Config{}
	err := yaml.Unmarshal(data, self)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	self.setDefaults()
	if err := self.Check(); err != nil {
		return nil, err
	}
	return self, nil
}

func Must(config *Config, err error) *Config {
	if err != nil {
		panic(err)
	}
	return config
}

func (self *Config) setDefaults() {
	if self.Listen == "" {
		self.Listen = DefaultListen
	}
	if self.Workers == 0 {
		self.Workers = DefaultWorkers
	}
	if self.Backlog == 0 {
		self.Backlog = DefaultBacklog
	}
	if self.Read_Timeout.Duration == 0 {
		self.Read_Timeout.Duration = DefaultTimeout
	}
	if self.Max_Message == 0 {
		self.Max_Message = DefaultMaxMessage
	}
	if self.State == "" {
		self.State = ConfigPath("state.json")
	}
	self.State = util.ExpandUser(self.State)
	if self.Driver.Name == "" {
		self.Driver.Name = "stub"
	}
	if self.Driver.Baud == 0 {
		self.Driver.Baud = 9600
	}
	if self.Mqtt.Topic == "" {
		self.Mqtt.Topic = "pinserver"
	}
}

// Check the configuration is usable. Ids must be non-negative and unique per
// kind, since each one gets exactly one lock.
func (self *Config) Check() error {
	if self.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", self.Workers)
	}
	if self.Backlog < 1 {
		return errors.Errorf("backlog must be at least 1, got %d", self.Backlog)
	}
	if err := checkIds("pin", self.Pins); err != nil {
		return err
	}
	if err := checkIds("channel", self.Channels); err != nil {
		return err
	}
	switch self.Default_Handler {
	case "", "echo":
	default:
		return errors.Errorf("unknown default handler: %s", self.Default_Handler)
	}
	switch self.Driver.Name {
	case "stub", "periph", "raspi", "arduino":
	default:
		return errors.Errorf("unknown driver: %s", self.Driver.Name)
	}
	return nil
}

func checkIds(kind string, names map[string]int) error {
	seen := map[int]string{}
	for name, id := range names {
		if id < 0 {
			return errors.Errorf("%s %s has negative id %d", kind, name, id)
		}
		if other, ok := seen[id]; ok {
			return errors.Errorf("%s id %d used by both %s and %s", kind, id, other, name)
		}
		seen[id] = name
	}
	return nil
}

// Pin ids in ascending order.
func (self *Config) PinIds() []int {
	return sortedIds(self.Pins)
}

// Channel ids in ascending order.
func (self *Config) ChannelIds() []int {
	return sortedIds(self.Channels)
}

// Friendly name of a pin, or the number itself.
func (self *Config) PinName(id int) string {
	return lookupName(self.Pins, id)
}

// Friendly name of a channel, or the number itself.
func (self *Config) ChannelName(id int) string {
	return lookupName(self.Channels, id)
}

func sortedIds(names map[string]int) []int {
	ids := make([]int, 0, len(names))
	for _, id := range names {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func lookupName(names map[string]int, id int) string {
	for name, n := range names {
		if n == id {
			return name
		}
	}
	return fmt.Sprint(id)
}

// helpers

// Resolve a configuration file under .config/pinserver
func ConfigPath(p string) string {
	config := os.Getenv("XDG_CONFIG_HOME")
	if config == "" {
		config = path.Join(os.Getenv("HOME"), ".config")
	}
	return path.Join(config, "pinserver", p)
}
