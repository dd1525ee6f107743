package observability

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func watchLoop() {
//	    defer observability.RecoverPanic(log, "config watch loop")
//	    // ... code that might panic
//	}
//
// If a panic occurs it is recovered and logged at Error level with the panic
// value, the full stack trace, and the context string. The panic is NOT
// re-raised, so a crashing background goroutine cannot take down a build.
func RecoverPanic(log *logrus.Logger, context string) {
	if r := recover(); r != nil {
		log.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a
// callback
//
// Usage when cleanup is needed after panic:
//
//	func refreshWorker() {
//	    defer observability.RecoverPanicWithCallback(log, "plugin refresh worker", func() {
//	        close(resultCh)
//	    })
//	    // ... code that might panic
//	}
//
// The callback runs only when a panic occurred, after it has been logged.
// Use it to close channels, release locks, or flag the failure so waiting
// goroutines are not left blocked.
func RecoverPanicWithCallback(log *logrus.Logger, context string, callback func()) {
	if r := recover(); r != nil {
		log.WithFields(logrus.Fields{
			"panic":   r,
			"stack":   string(debug.Stack()),
			"context": context,
		}).Error("PANIC recovered")
		if callback != nil {
			callback()
		}
	}
}

// MustRecover converts a recovered panic value to an error
//
// Usage:
//
//	func parseConfig() (cfg Config, err error) {
//	    defer func() {
//	        if rerr := observability.MustRecover(recover()); rerr != nil {
//	            err = rerr
//	        }
//	    }()
//	    // ... code that might panic
//	    return cfg, nil
//	}
//
// Returns nil when r is nil. The stack trace is not included in the error;
// use RecoverPanic for structured logging with full stack traces.
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
