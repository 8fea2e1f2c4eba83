// Package safego provides a panic-recovering goroutine launcher, used for
// the bridge's long-lived reader/event-loop goroutines so a single bad
// analyzer response never brings down the whole process.
package safego

import (
	"runtime/debug"

	"go.uber.org/zap"
)

// Go launches fn in a goroutine with deferred panic recovery. On panic it
// logs the stack trace via logger and returns without re-panicking — a
// panic in one subprocess's event loop should not take down a process
// that may be supervising other bridges.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in background goroutine",
					zap.String("goroutine", name),
					zap.Any("recovered", r),
					zap.ByteString("stack", debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
