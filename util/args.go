// Package util holds small helpers shared by the command line and config.
package util

import (
	"strconv"
	"strings"
)

// ParseArg turns a command line value into a number or bool where it looks
// like one, so it encodes to JSON as such.
func ParseArg(value string) interface{} {
	if num, err := strconv.ParseFloat(value, 64); err == nil {
		return num
	}
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}

// ParseArgs splits arguments into positional words and key=value params.
func ParseArgs(args []string) (words []string, params map[string]interface{}) {
	params = map[string]interface{}{}
	for _, arg := range args {
		p := strings.SplitN(arg, "=", 2)
		if len(p) == 2 {
			params[p[0]] = ParseArg(p[1])
		} else {
			words = append(words, p[0])
		}
	}
	return words, params
}
