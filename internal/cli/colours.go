package cli

import (
	"github.com/fatih/color"
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgBlue),
	"PUT":    color.New(color.FgCyan),
	"DELETE": color.New(color.FgYellow),
}

// methodLabel returns method coloured the way request lines are printed.
func methodLabel(method string) string {
	if c, ok := methodColors[method]; ok {
		return c.Sprint(method)
	}
	return method
}
