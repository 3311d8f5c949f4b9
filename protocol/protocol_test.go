package protocol

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ExampleParseType() {
	fmt.Println(ParseType("set_pin"))
	fmt.Println(ParseType("List_Cnls"))
	fmt.Println(ParseType("BSET"))
	// Output:
	// SET_PIN
	// LIST_CNLS
	// UNKNOWN
}

func ExampleWriteMessage() {
	WriteMessage(os.Stdout, Success(map[string]interface{}{"pin": map[string]float64{"2": 1}}))
	WriteMessage(os.Stdout, Failure("error handling command"))
	// Output:
	// {"ok":true,"data":{"pin":{"2":1}}}
	// {"ok":false,"error":{"message":"error handling command"}}
}

func TestReadActionEOF(t *testing.T) {
	a, err := ReadAction(strings.NewReader(`{"type":"LIST_PINS"}`), 1024)
	require.NoError(t, err)
	assert.Equal(t, ListPins, a.Kind())
}

func TestReadActionMultiline(t *testing.T) {
	body := "\n{\n  \"type\": \"SET_PIN\",\n  \"params\": {\n    \"pin\": 2,\n    \"val\": 1\n  }\n}\n"
	a, err := ReadAction(strings.NewReader(body), 1024)
	require.NoError(t, err)
	assert.Equal(t, SetPin, a.Kind())
	assert.Equal(t, Params{"pin": float64(2), "val": float64(1)}, a.Params)
}

func TestReadActionIgnoresTrailing(t *testing.T) {
	a, err := ReadAction(strings.NewReader("{\"type\":\"GET_PIN\"}\ntrailing"), 1024)
	require.NoError(t, err)
	assert.Equal(t, GetPin, a.Kind())
}

func TestReadActionFragmented(t *testing.T) {
	body := `{"type":"SET_PIN","params":{"pin":2,"val":1}}`
	r := iotest.OneByteReader(strings.NewReader(body))
	a, err := ReadAction(r, 1024)
	require.NoError(t, err)
	assert.Equal(t, Params{"pin": float64(2), "val": float64(1)}, a.Params)
}

func TestReadActionLargerThanOneRead(t *testing.T) {
	// bigger than the old fixed 1024 byte receive
	pad := strings.Repeat("x", 4000)
	body := `{"type":"PING","params":{"pad":"` + pad + `"}}`
	a, err := ReadAction(strings.NewReader(body), 64*1024)
	require.NoError(t, err)
	assert.Equal(t, pad, a.Params["pad"])
}

func TestReadActionEmpty(t *testing.T) {
	_, err := ReadAction(strings.NewReader(""), 1024)
	assert.Equal(t, io.EOF, err)
	_, err = ReadAction(strings.NewReader(" \n\n"), 1024)
	assert.Equal(t, io.EOF, err)
}

func TestReadActionTruncated(t *testing.T) {
	_, err := ReadAction(strings.NewReader(`{"type": "SET_PIN", `), 1024)
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestReadActionTooLarge(t *testing.T) {
	body := `{"type":"LIST_PINS","params":{"pad":"xxxxxxxxxxxxxxxx"}}`
	_, err := ReadAction(strings.NewReader(body), 32)
	assert.Equal(t, ErrTooLarge, err)
	a, err := ReadAction(strings.NewReader(body), len(body))
	require.NoError(t, err)
	assert.Equal(t, ListPins, a.Kind())
}

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"get_pin","params":{"pin":2}}`))
	require.NoError(t, err)
	assert.Equal(t, GetPin, a.Kind())
	assert.Equal(t, Params{"pin": float64(2)}, a.Params)

	_, err = DecodeAction([]byte(`not json`))
	assert.Error(t, err)
	_, err = DecodeAction([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDecodeResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Failure("could not match command to handler")))
	resp, err := DecodeResponse(bytes.TrimSpace(buf.Bytes()))
	require.NoError(t, err)
	assert.False(t, resp.Ok)
	assert.Equal(t, "could not match command to handler", resp.Error.Message)
}
