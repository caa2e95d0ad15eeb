// Package logging builds the shared zap logger for a cardgolf invocation.
// Every run logs to the console and to its own timestamped file under the
// configured logging directory, and every line carries the run id so that
// overlapping scheduler misfires can be untangled after the fact.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TimestampLayout is the layout used for per-run log file names. It matches
// the key layout of the round store so that log files line up with rounds.
const TimestampLayout = "2006-01-02_15:04:05"

// New creates a logger that tees the console and a per-run log file in dir.
// The returned cleanup function syncs and closes the file sink.
func New(dir string, verbose bool) (*zap.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logging dir: %w", err)
	}

	logPath := filepath.Join(dir, fmt.Sprintf("card_golf_%s.log", time.Now().Format(TimestampLayout)))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logFile), level),
	)

	logger := zap.New(core).With(zap.String("run_id", uuid.NewString()))

	cleanup := func() {
		_ = logger.Sync()
		_ = logFile.Close()
	}
	return logger, cleanup, nil
}
