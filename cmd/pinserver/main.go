package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/barnybug/pinserver/client"
	"github.com/barnybug/pinserver/config"
	"github.com/barnybug/pinserver/driver"
	"github.com/barnybug/pinserver/driver/arduino"
	"github.com/barnybug/pinserver/driver/periph"
	"github.com/barnybug/pinserver/driver/raspi"
	"github.com/barnybug/pinserver/driver/stub"
	"github.com/barnybug/pinserver/pubsub"
	"github.com/barnybug/pinserver/pubsub/mqtt"
	"github.com/barnybug/pinserver/resource"
	"github.com/barnybug/pinserver/server"
	"github.com/barnybug/pinserver/state"
	"github.com/barnybug/pinserver/util"
)

func usage() {
	fmt.Println("Usage: pinserver [-c config] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("   run                     Run the server")
	fmt.Println("   send    TYPE [key=val]  Send one action, e.g. send SET_PIN pin=2 val=1")
	fmt.Println("   state                   Show the persisted pin state")
	fmt.Println("   check                   Check the configuration")
	fmt.Println()
	flag.PrintDefaults()
}

var configPath = flag.String("c", config.ConfigPath("pinserver.yml"), "configuration file")

func main() {
	log.SetOutput(os.Stdout)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	conf, err := config.Open(*configPath)
	if err != nil {
		log.Fatalln("Error reading config:", err)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]
	switch command {
	default:
		usage()
		os.Exit(1)
	case "run":
		server.SetupLogging()
		if err := run(conf); err != nil {
			log.Fatalln("Error:", err)
		}
	case "send":
		if len(args) < 1 {
			usage()
			os.Exit(1)
		}
		send(conf, args)
	case "state":
		showState(conf)
	case "check":
		check(conf)
	}
}

func openBackend(conf config.DriverConf) (driver.Backend, error) {
	switch conf.Name {
	case "periph":
		b, err := periph.NewBackend(conf.Spi)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "raspi":
		b, err := raspi.Open()
		if err != nil {
			return nil, err
		}
		return b, nil
	case "arduino":
		b, err := arduino.Open(conf.Device, conf.Baud)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return stub.NewBackend(), nil
}

func openPublisher(conf config.MqttConf) (pubsub.Publisher, func()) {
	if conf.Broker == "" {
		return pubsub.Discard{}, func() {}
	}
	broker, err := mqtt.NewBroker(conf.Broker)
	if err != nil {
		// events are a convenience, the server runs without them
		log.Println("Warning:", err)
		return pubsub.Discard{}, func() {}
	}
	return broker.Publisher(conf.Topic), broker.Close
}

func run(conf *config.Config) error {
	backend, err := openBackend(conf.Driver)
	if err != nil {
		return err
	}
	defer backend.Close()
	log.Printf("Using %s driver: %d pins, %d channels", backend.ID(), len(conf.Pins), len(conf.Channels))

	reg, err := resource.FromConfig(conf, backend)
	if err != nil {
		return err
	}

	publisher, closePublisher := openPublisher(conf.Mqtt)
	defer closePublisher()
	log.Println("Publishing events to", publisher.ID())

	s := server.New(conf, reg, publisher)
	s.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = s.ListenAndServe(ctx)
	log.Println("Stopped")
	return err
}

func send(conf *config.Config, args []string) {
	words, params := util.ParseArgs(args)
	if len(words) != 1 {
		usage()
		os.Exit(1)
	}
	c := client.New(conf.Listen)
	resp, err := c.Send(words[0], params)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if !resp.Ok {
		os.Exit(1)
	}
}

func showState(conf *config.Config) {
	st, err := state.Read(conf.State)
	if os.IsNotExist(err) {
		fmt.Println("No state saved yet")
		return
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	if st.Timestamp != 0 {
		fmt.Println("Saved:", st.Time())
	}
	values := st.Values()
	ids := make([]int, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("%-4d %-20s %v\n", id, conf.PinName(id), values[id])
	}
}

func check(conf *config.Config) {
	fmt.Println("Listen:", conf.Listen)
	fmt.Println("Driver:", conf.Driver.Name)
	fmt.Println("Pins:")
	for _, id := range conf.PinIds() {
		fmt.Printf("  %-4d %s\n", id, conf.PinName(id))
	}
	fmt.Println("Channels:")
	for _, id := range conf.ChannelIds() {
		fmt.Printf("  %-4d %s\n", id, conf.ChannelName(id))
	}
}
