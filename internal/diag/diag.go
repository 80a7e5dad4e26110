// Package diag wraps the structured logger used by the garbage
// collector. It exists so gc.go doesn't grow its own ad-hoc printf
// trail when the --gc-log flag is on. The --trace execution tracer in
// debug.go prints directly and does not go through this package.
package diag

import "go.uber.org/zap"

// Logger is a thin wrapper around *zap.Logger. A nil *Logger is valid
// and silently discards every event — callers never need to guard a
// log call behind a flag check themselves.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger backed by a development zap.Logger (human
// readable, no sampling) when enabled is true. When enabled is false
// it returns a Logger that discards everything, so GC and VM code can
// call it unconditionally.
func New(enabled bool) *Logger {
	if !enabled {
		return &Logger{}
	}
	z, err := zap.NewDevelopment()
	if err != nil {
		// A broken logger shouldn't take the interpreter down with it.
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

func (l *Logger) GCEvent(phase string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Info("gc."+phase, fields...)
}

func (l *Logger) Trace(msg string, fields ...zap.Field) {
	if l == nil || l.z == nil {
		return
	}
	l.z.Debug(msg, fields...)
}

func (l *Logger) Sync() {
	if l == nil || l.z == nil {
		return
	}
	_ = l.z.Sync()
}

// Field re-exports are small conveniences so callers outside this
// package don't need a direct zap import just to build a log call.
var (
	String = zap.String
	Int    = zap.Int
	Int64  = zap.Int64
	Bool   = zap.Bool
)
