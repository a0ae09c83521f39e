package monitoring

import "log"

// Logf is the package-level diagnostic logger shared by the non-pipeline
// packages (config loading, replay, chart rendering, CLI). It defaults to
// log.Printf and may be replaced by SetLogger; the pipeline itself carries
// its own leveled writers.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Quiet mutes the package logger. Used by the CLI --quiet flag.
func Quiet() {
	SetLogger(nil)
}
