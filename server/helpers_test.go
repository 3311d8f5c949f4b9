package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/barnybug/pinserver/client"
	"github.com/barnybug/pinserver/config"
	"github.com/barnybug/pinserver/driver/stub"
	"github.com/barnybug/pinserver/pubsub/dummy"
	"github.com/barnybug/pinserver/resource"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	conf      *config.Config
	backend   *stub.Backend
	publisher *dummy.Publisher
	server    *Server
}

func exampleConfig(t *testing.T) *config.Config {
	conf := *config.ExampleConfig
	conf.State = filepath.Join(t.TempDir(), "state.json")
	return &conf
}

func newFixture(t *testing.T, conf *config.Config) *fixture {
	if conf == nil {
		conf = exampleConfig(t)
	}
	backend := stub.NewBackend()
	reg, err := resource.FromConfig(conf, backend)
	require.NoError(t, err)
	publisher := &dummy.Publisher{}
	return &fixture{
		conf:      conf,
		backend:   backend,
		publisher: publisher,
		server:    New(conf, reg, publisher),
	}
}

// serve on a random local port until the test ends.
func (self *fixture) serve(t *testing.T) *client.Client {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- self.server.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return client.New(ln.Addr().String())
}
