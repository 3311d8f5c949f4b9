package server

import (
	"context"
	"io/ioutil"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/barnybug/pinserver/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// raw sends bytes, shuts down the write side and returns whatever comes back.
func raw(t *testing.T, c *client.Client, msg string) []byte {
	conn, err := net.Dial("tcp", c.Addr)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Write([]byte(msg))
	require.NoError(t, err)
	conn.(*net.TCPConn).CloseWrite()
	// a dropped connection may be reset rather than closed cleanly
	data, _ := ioutil.ReadAll(conn)
	return data
}

func TestServeSetGet(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)

	v, err := c.SetPin(3, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = c.GetPin(3)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	pins, err := c.ListPins()
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{2: 0, 3: 1, 5: 0, 6: 0}, pins)
}

func TestServeChannels(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.Channel(0).Set(0.25)
	f.backend.Channel(1).Set(0.5)
	c := f.serve(t)

	v, err := c.GetChannel(1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	channels, err := c.ListChannels()
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 0.25, 1: 0.5}, channels)
}

func TestServeRawResponse(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	data := raw(t, c, `{"type": "set_pin", "params": {"pin": 2, "val": 1}}`)
	assert.JSONEq(t, `{"ok": true, "data": {"pin": {"2": 1}}}`, string(data))
}

func TestServeMultilineRequest(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	data := raw(t, c, "\n{\n  \"type\": \"SET_PIN\",\n  \"params\": {\"pin\": 5, \"val\": 1}\n}")
	assert.JSONEq(t, `{"ok": true, "data": {"pin": {"5": 1}}}`, string(data))
	data = raw(t, c, "{\n  \"type\": \"LIST_PINS\",\n  \"params\": {}\n}\n")
	assert.JSONEq(t, `{"ok": true, "data": {"pins": [{"2": 0}, {"3": 0}, {"5": 1}, {"6": 0}]}}`, string(data))
}

func TestServeMalformedDropped(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	assert.Empty(t, raw(t, c, `{"type": "SET_PIN", `))
	assert.Empty(t, raw(t, c, `hello`))
	// still serving
	_, err := c.GetPin(2)
	assert.NoError(t, err)
}

func TestServeInvalidDropped(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	_, err := c.Send("GET_PIN", map[string]interface{}{"pin": 4})
	assert.Equal(t, client.ErrNoResponse, err)
	_, err = c.Send("BSET", nil)
	assert.Equal(t, client.ErrNoResponse, err)
	_, err = c.SetPin(4, 1)
	assert.Error(t, err)
}

func TestServeEmptyConnection(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	assert.Empty(t, raw(t, c, ""))
	_, err := c.ListPins()
	assert.NoError(t, err)
}

func TestServeOversizedDropped(t *testing.T) {
	conf := exampleConfig(t)
	conf.Max_Message = 32
	f := newFixture(t, conf)
	c := f.serve(t)
	assert.Empty(t, raw(t, c, `{"type": "LIST_PINS", "params": {"padding": "xxxxxxxxxxxxxxxx"}}`))
}

func TestServeEcho(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	resp, err := c.Send("ping", map[string]interface{}{"n": 1})
	require.NoError(t, err)
	assert.True(t, resp.Ok)
	assert.Equal(t, "ping", resp.Data["type"])
}

func TestServeUnmatched(t *testing.T) {
	conf := exampleConfig(t)
	conf.Default_Handler = ""
	f := newFixture(t, conf)
	c := f.serve(t)
	resp, err := c.Send("PING", nil)
	require.NoError(t, err)
	assert.False(t, resp.Ok)
	assert.Equal(t, "could not match command to handler", resp.Error.Message)
}

func TestServeSilentClientTimesOut(t *testing.T) {
	conf := exampleConfig(t)
	conf.Workers = 1
	conf.Read_Timeout.Duration = 100 * time.Millisecond
	f := newFixture(t, conf)
	c := f.serve(t)

	// holds the only worker without sending anything
	conn, err := net.Dial("tcp", c.Addr)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	data, err := ioutil.ReadAll(conn)
	assert.NoError(t, err)
	assert.Empty(t, data)

	// and the worker is free again
	_, err = c.GetPin(2)
	assert.NoError(t, err)
}

func TestServeConcurrentSamePin(t *testing.T) {
	f := newFixture(t, nil)
	c := f.serve(t)
	values := []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 0}
	var wg sync.WaitGroup
	for _, v := range values {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			got, err := c.SetPin(5, v)
			assert.NoError(t, err)
			assert.Equal(t, v, got)
		}(v)
	}
	wg.Wait()

	final, err := c.GetPin(5)
	require.NoError(t, err)
	assert.Contains(t, values, final)
}

func TestServeRestartRestoresPins(t *testing.T) {
	conf := exampleConfig(t)
	f := newFixture(t, conf)
	f.server.Load()
	c := f.serve(t)
	_, err := c.SetPin(2, 1)
	require.NoError(t, err)
	_, err = c.SetPin(6, 1)
	require.NoError(t, err)
	before, err := c.ListPins()
	require.NoError(t, err)

	// a fresh server with fresh hardware, same state file
	g := newFixture(t, conf)
	g.server.Load()
	after, err := g.serve(t).ListPins()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, map[int]float64{2: 1, 3: 0, 5: 0, 6: 1}, after)
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- f.server.Serve(ctx, ln) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	_, err = net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	assert.Error(t, err)
}
