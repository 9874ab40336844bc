// Package color provides minimal ANSI terminal colors for CLI output.
package color

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ANSI color codes
const (
	reset = "\033[0m"

	FgRed    = 31
	FgGreen  = 32
	FgYellow = 33
	FgCyan   = 36
	FgWhite  = 37

	Bold = 1
)

// Color is a reusable text style.
type Color struct {
	params []int
}

// New creates a Color with the given attributes.
func New(attrs ...int) *Color {
	return &Color{params: attrs}
}

func (c *Color) format() string {
	if len(c.params) == 0 {
		return ""
	}
	codes := make([]string, len(c.params))
	for i, p := range c.params {
		codes[i] = strconv.Itoa(p)
	}
	return "\033[" + strings.Join(codes, ";") + "m"
}

// Printf writes formatted, colored text to stdout.
func (c *Color) Printf(format string, a ...interface{}) {
	c.Fprintf(os.Stdout, format, a...)
}

// Fprintf writes formatted, colored text to w.
func (c *Color) Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprint(w, c.format())
	fmt.Fprintf(w, format, a...)
	fmt.Fprint(w, reset)
}
