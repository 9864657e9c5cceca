//go:build windows

package shutdown

import (
	"os"
	"os/signal"
)

// Notify subscribes ch to Ctrl-C. There is no SIGTERM on Windows; the
// console control events surface as os.Interrupt.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
