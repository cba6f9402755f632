// Package qlog builds the process-wide structured logger and threads it
// explicitly into subsystems instead of relying on a package-level global.
package qlog

import (
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a sugared zap logger. Subsystems receive one explicitly at
// construction time.
type Logger struct {
	*zap.SugaredLogger
}

// Options controls logger construction; fields mirror the recognized
// debug environment variables.
type Options struct {
	CI      bool // QD_CI: stricter level, extra assertions upstream
	DumpIR  bool // QD_DUMP_IR / TI_DUMP_IR
	Verbose bool
}

// OptionsFromEnv reads QD_CI (and the legacy TI_CI alias); both prefixes
// are recognized for compatibility with older deployments.
func OptionsFromEnv() Options {
	ci := envTruthy("QD_CI") || envTruthy("TI_CI")
	return Options{
		CI:      ci,
		DumpIR:  envTruthy("QD_DUMP_IR") || envTruthy("TI_DUMP_IR"),
		Verbose: ci,
	}
}

func envTruthy(name string) bool {
	v := os.Getenv(name)
	if v == "" {
		return false
	}
	n, err := strconv.Atoi(v)
	if err == nil {
		return n != 0
	}
	return v == "true" || v == "1"
}

// New builds a Logger. In CI mode the level is Debug and stacktraces are
// captured on Warn+; otherwise Info level, stacktraces on Error+.
func New(opts Options) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	buildOpts := []zap.Option{zap.AddCallerSkip(1)}
	if opts.CI {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.DisableStacktrace = false
		buildOpts = append(buildOpts, zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	base, err := cfg.Build(buildOpts...)
	if err != nil {
		// Logger construction failure is not recoverable at this layer; fall
		// back to a no-op core rather than abort process startup.
		base = zap.NewNop()
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// Nop returns a logger that discards everything, used by tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Named returns a child logger scoped to a subsystem name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}
