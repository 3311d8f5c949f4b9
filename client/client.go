// Package client talks to a pin server.
package client

import (
	"bytes"
	"io"
	"io/ioutil"
	"net"
	"strconv"
	"time"

	"github.com/barnybug/pinserver/protocol"
	"github.com/pkg/errors"
)

// ErrNoResponse is returned when the server closes the connection without
// answering, which it does for malformed or invalid actions.
var ErrNoResponse = errors.New("no response from server")

const maxResponse = 1 << 20

type Client struct {
	Addr    string
	Timeout time.Duration
}

func New(addr string) *Client {
	return &Client{Addr: addr, Timeout: 5 * time.Second}
}

// Send an action and wait for the response.
func (self *Client) Send(kind string, params protocol.Params) (*protocol.Response, error) {
	if params == nil {
		params = protocol.Params{}
	}
	conn, err := net.DialTimeout("tcp", self.Addr, self.Timeout)
	if err != nil {
		return nil, errors.Wrap(err, "connecting")
	}
	defer conn.Close()
	if self.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(self.Timeout))
	}

	action := protocol.Action{Type: kind, Params: params}
	if err := protocol.WriteMessage(conn, action); err != nil {
		return nil, errors.Wrap(err, "sending")
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}

	data, err := ioutil.ReadAll(io.LimitReader(conn, maxResponse))
	if err != nil {
		return nil, errors.Wrap(err, "receiving")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoResponse
	}
	return protocol.DecodeResponse(data)
}

func (self *Client) call(kind protocol.Type, params protocol.Params) (map[string]interface{}, error) {
	resp, err := self.Send(kind.String(), params)
	if err != nil {
		return nil, err
	}
	if !resp.Ok {
		message := "unknown error"
		if resp.Error != nil {
			message = resp.Error.Message
		}
		return nil, errors.Errorf("%s: %s", kind, message)
	}
	return resp.Data, nil
}

func single(data map[string]interface{}, key string, id int) (float64, error) {
	entry, ok := data[key].(map[string]interface{})
	if !ok {
		return 0, errors.Errorf("response has no %s", key)
	}
	value, ok := entry[strconv.Itoa(id)].(float64)
	if !ok {
		return 0, errors.Errorf("response has no value for %s %d", key, id)
	}
	return value, nil
}

func merge(data map[string]interface{}, key string) (map[int]float64, error) {
	entries, ok := data[key].([]interface{})
	if !ok {
		return nil, errors.Errorf("response has no %s", key)
	}
	ret := map[int]float64{}
	for _, e := range entries {
		entry, _ := e.(map[string]interface{})
		for k, v := range entry {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, errors.Wrapf(err, "bad id in %s", key)
			}
			value, _ := v.(float64)
			ret[id] = value
		}
	}
	return ret, nil
}

// SetPin returns the value the pin holds afterwards, which differs from val
// if the hardware refused the write.
func (self *Client) SetPin(pin int, val float64) (float64, error) {
	data, err := self.call(protocol.SetPin, protocol.Params{"pin": pin, "val": val})
	if err != nil {
		return 0, err
	}
	return single(data, "pin", pin)
}

func (self *Client) GetPin(pin int) (float64, error) {
	data, err := self.call(protocol.GetPin, protocol.Params{"pin": pin})
	if err != nil {
		return 0, err
	}
	return single(data, "pin", pin)
}

func (self *Client) GetChannel(channel int) (float64, error) {
	data, err := self.call(protocol.GetChannel, protocol.Params{"channel": channel})
	if err != nil {
		return 0, err
	}
	return single(data, "channel", channel)
}

func (self *Client) ListPins() (map[int]float64, error) {
	data, err := self.call(protocol.ListPins, nil)
	if err != nil {
		return nil, err
	}
	return merge(data, "pins")
}

func (self *Client) ListChannels() (map[int]float64, error) {
	data, err := self.call(protocol.ListChannels, nil)
	if err != nil {
		return nil, err
	}
	return merge(data, "channels")
}
