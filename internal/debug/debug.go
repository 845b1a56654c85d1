// Package debug implements WAYLAND_DEBUG style protocol tracing.
package debug

import (
	"log"
	"os"
	"strconv"
)

var enabled bool

func init() {
	debugLevel, err := strconv.ParseInt(os.Getenv("WAYLAND_DEBUG"), 10, 0)
	if err != nil {
		return
	}
	enabled = debugLevel > 0
}

// Enabled reports whether tracing is turned on.
func Enabled() bool {
	return enabled
}

// Printf logs a trace line if WAYLAND_DEBUG is set to a positive
// integer.
func Printf(str string, args ...any) {
	if enabled {
		log.Printf(str, args...)
	}
}
