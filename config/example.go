package config

import "strings"

var ExampleYaml = `
listen: 127.0.0.1:50007
workers: 5
read_timeout: 2s
state: /tmp/pinserver-state.json
default_handler: echo
commands: [PING]
driver:
  name: stub
pins:
  lights/enable: 2
  sensors/enable: 3
  pump/enable: 5
  fan/enable: 6
channels:
  moisture/main: 0
  moisture/front: 1
mqtt:
  topic: greenhouse`

var ExampleConfig = Must(OpenReader(strings.NewReader(ExampleYaml)))
