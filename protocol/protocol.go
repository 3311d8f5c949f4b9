// Package protocol is the wire format spoken between clients and the pin
// server: one JSON action per connection, answered by one JSON response.
//
// A request is a single JSON document, which may span several lines. The
// sender shuts down its write side once it has been sent.
package protocol

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

var ErrTooLarge = errors.New("message too large")

// Type is the action tag.
type Type int

const (
	Unknown Type = iota
	SetPin
	GetPin
	ListPins
	GetChannel
	ListChannels
)

var typeNames = map[Type]string{
	SetPin:       "SET_PIN",
	GetPin:       "GET_PIN",
	ListPins:     "LIST_PINS",
	GetChannel:   "GET_CHNL",
	ListChannels: "LIST_CNLS",
}

// Types in the catalogue, in a stable order.
var Types = []Type{SetPin, GetPin, ListPins, GetChannel, ListChannels}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseType matches a tag case-insensitively, returning Unknown if it is not
// in the catalogue.
func ParseType(tag string) Type {
	for _, t := range Types {
		if strings.EqualFold(tag, typeNames[t]) {
			return t
		}
	}
	return Unknown
}

type Params map[string]interface{}

// Action is a decoded client request.
type Action struct {
	Type   string `json:"type"`
	Params Params `json:"params"`
}

// Kind is the parsed action type.
func (self *Action) Kind() Type {
	return ParseType(self.Type)
}

type Error struct {
	Message string `json:"message"`
}

// Response is either {ok: true, data} or {ok: false, error}.
type Response struct {
	Ok    bool                   `json:"ok"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Error *Error                 `json:"error,omitempty"`
}

func Success(data map[string]interface{}) *Response {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Response{Ok: true, Data: data}
}

func Failure(message string) *Response {
	return &Response{Ok: false, Error: &Error{Message: message}}
}

type countingReader struct {
	r io.Reader
	n int
}

func (self *countingReader) Read(p []byte) (int, error) {
	n, err := self.r.Read(p)
	self.n += n
	return n, err
}

// ReadAction decodes exactly one JSON action of at most max bytes. Whitespace,
// including newlines, may appear anywhere in it; anything after the action is
// ignored. It returns io.EOF if the peer closed without sending anything.
func ReadAction(r io.Reader, max int) (*Action, error) {
	cr := &countingReader{r: io.LimitReader(r, int64(max)+1)}
	var action Action
	err := json.NewDecoder(cr).Decode(&action)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		if cr.n > max {
			return nil, ErrTooLarge
		}
		return nil, errors.Wrap(err, "decoding action")
	}
	return &action, nil
}

// WriteMessage encodes v as a single newline-terminated message.
func WriteMessage(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// DecodeAction parses a message into an Action.
func DecodeAction(data []byte) (*Action, error) {
	var action Action
	if err := json.Unmarshal(data, &action); err != nil {
		return nil, errors.Wrap(err, "decoding action")
	}
	return &action, nil
}

// DecodeResponse parses a message into a Response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	return &resp, nil
}
