//go:build !windows

// Package shutdown funnels termination signals into one channel. The
// main loop reads it twice over a recording's lifetime: an interrupt
// that arrives while a recording is live stops that recording in place,
// and any other delivery tears the process down.
package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Notify subscribes ch to Ctrl-C and SIGTERM, the latter so service
// managers get the same graceful path as an interactive interrupt.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
