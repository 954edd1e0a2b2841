// Package signal adapts process signals to the chat loop.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// NotifyContext returns a context that is cancelled when SIGINT or SIGTERM is received.
// The returned stop function should be called to release resources.
func NotifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Interrupts delivers SIGINT and SIGTERM on the returned channel until stop
// is called. The default action (exiting) is suppressed meanwhile.
func Interrupts() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}

// DoublePress detects a second press within Window of the first.
type DoublePress struct {
	Window time.Duration
	last   time.Time
}

// Press records a press at now and reports whether it completes a double
// press. A completed double press resets the detector.
func (d *DoublePress) Press(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) <= d.Window {
		d.last = time.Time{}
		return true
	}
	d.last = now
	return false
}

// Reset forgets an earlier press.
func (d *DoublePress) Reset() {
	d.last = time.Time{}
}
