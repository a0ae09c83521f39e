package pipeline

import (
	"io"
	"log"
	"os"
)

// Three logging streams, split by audience: ops carries actionable problems
// (rejected samples that indicate a broken feed, model failures), diag
// carries tuning context (confirmed phase changes, budget skips), trace
// carries per-sample telemetry and is far too chatty for normal runs.
//
// Ops is on by default; diag and trace stay off until a caller opts in via
// SetLogWriters. The phased CLI maps --verbose and --trace onto them.
var (
	opsLogger   = newLogger(os.Stderr)
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three streams. Pass nil for any writer to
// disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger(ops)
	diagLogger = newLogger(diag)
	traceLogger = newLogger(trace)
}

// SetLegacyLogger routes all three streams to a single writer, matching the
// old PHASE_DEBUG_LOG single-file behavior. Pass nil to disable all logging.
func SetLegacyLogger(w io.Writer) {
	SetLogWriters(w, w, w)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[phase-pipeline] ", log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
