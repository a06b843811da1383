package kvbench

import (
	"fmt"
	"io"
	"os"
)

type LogLevelType uint8

const (
	LevelVerbose LogLevelType = 50
	LevelDebug   LogLevelType = 40
	LevelInfo    LogLevelType = 30
	LevelWarn    LogLevelType = 20
	LevelError   LogLevelType = 10
	LevelQuiet   LogLevelType = 0
)

var (
	nameToLevels = map[string]LogLevelType{
		"verbose": LevelVerbose,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"quiet":   LevelQuiet,
	}
)

var (
	logLevel LogLevelType = LevelInfo
)

// SetLogLevel switches the global log level by name.
func SetLogLevel(name string) error {
	level, ok := nameToLevels[name]
	if !ok {
		return NewConfigError(PropertyLogLevel, "unknown level %q", name)
	}
	logLevel = level
	return nil
}

func Flogf(w io.Writer, level LogLevelType, format string, args ...interface{}) {
	if level <= logLevel {
		fmt.Fprintf(w, format, args...)
		fmt.Fprintln(w, "")
	}
}

func Logf(level LogLevelType, format string, args ...interface{}) {
	Flogf(os.Stdout, level, format, args...)
}

func Errorf(format string, args ...interface{}) {
	Flogf(os.Stderr, LevelError, format, args...)
}

func Warnf(format string, args ...interface{}) {
	Logf(LevelWarn, format, args...)
}

func Infof(format string, args ...interface{}) {
	Logf(LevelInfo, format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logf(LevelDebug, format, args...)
}

func Verbosef(format string, args ...interface{}) {
	Logf(LevelVerbose, format, args...)
}
