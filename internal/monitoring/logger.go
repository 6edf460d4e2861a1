// Package monitoring provides the injectable diagnostic loggers used across
// the capture pipeline.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Verbose gates Debugf. Per-frame soft failures (segmentation misses, noisy
// encodes) log through Debugf and are otherwise absorbed, so the live loop
// stays quiet unless verbose diagnostics are requested.
var Verbose = false

// Debugf logs only when Verbose is set.
func Debugf(format string, v ...interface{}) {
	if Verbose {
		Logf(format, v...)
	}
}

// SetLogger replaces the package logger. Passing nil will set a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
