// Copyright (c) Contributors to the mpishim project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sylog implements a small leveled logger shared by every package in
// the launch pipeline: one log line per call, a level controlled by an
// environment variable, and an explicit Writer() escape hatch for tests.
package sylog

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a log message.
type Level int

const (
	// FatalLevel messages are always printed; callers typically follow
	// with os.Exit.
	FatalLevel Level = iota - 2
	// ErrorLevel messages are always printed.
	ErrorLevel
	// WarnLevel messages are printed unless the level is Error or below.
	WarnLevel
	// InfoLevel is the default level.
	InfoLevel
	// DebugLevel messages are only printed when explicitly enabled.
	DebugLevel
)

func (l Level) String() string {
	switch l {
	case FatalLevel:
		return "FATAL"
	case ErrorLevel:
		return "ERROR"
	case WarnLevel:
		return "WARNING"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	default:
		return "LOG"
	}
}

var levelColors = map[Level]*color.Color{
	FatalLevel: color.New(color.FgRed, color.Bold),
	ErrorLevel: color.New(color.FgRed),
	WarnLevel:  color.New(color.FgYellow),
}

var (
	currentLevel = InfoLevel
	logWriter    = io.Writer(os.Stderr)
)

const envVar = "MPISHIM_MESSAGELEVEL"

func init() {
	if l, err := strconv.Atoi(os.Getenv(envVar)); err == nil {
		currentLevel = Level(l)
	}
}

func writef(msgLevel Level, format string, a ...interface{}) {
	if currentLevel < msgLevel {
		return
	}

	message := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	label := msgLevel.String() + ":"

	if c, ok := levelColors[msgLevel]; ok && logWriter == io.Writer(os.Stderr) {
		fmt.Fprintf(logWriter, "%s %s\n", c.Sprint(fmt.Sprintf("%-8s", label)), message)
		return
	}

	fmt.Fprintf(logWriter, "%-8s %s\n", label, message)
}

// Fatalf writes a FATAL message and terminates the process.
func Fatalf(format string, a ...interface{}) {
	writef(FatalLevel, format, a...)
	os.Exit(255)
}

// Errorf writes an ERROR message without exiting.
func Errorf(format string, a ...interface{}) { writef(ErrorLevel, format, a...) }

// Warningf writes a WARNING message.
func Warningf(format string, a ...interface{}) { writef(WarnLevel, format, a...) }

// Infof writes an INFO message.
func Infof(format string, a ...interface{}) { writef(InfoLevel, format, a...) }

// Debugf writes a DEBUG message.
func Debugf(format string, a ...interface{}) { writef(DebugLevel, format, a...) }

// SetLevel explicitly sets the current log level.
func SetLevel(l Level) { currentLevel = l }

// GetLevel returns the current log level.
func GetLevel() Level { return currentLevel }

// EnvVar returns a "NAME=value" string suitable for propagating the current
// level to a child process (the container-analysis subcommand).
func EnvVar() string {
	return fmt.Sprintf("%s=%d", envVar, currentLevel)
}

// Writer returns the underlying io.Writer, or io.Discard when the level is
// below Error.
func Writer() io.Writer {
	if currentLevel < ErrorLevel {
		return io.Discard
	}
	return logWriter
}

// SetWriter installs a new writer (used by tests to capture log output) and
// returns the previous one so callers can restore it.
func SetWriter(w io.Writer) io.Writer {
	old := logWriter
	if w != nil {
		logWriter = w
	}
	return old
}
