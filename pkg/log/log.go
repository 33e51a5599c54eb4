// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log is the process-wide logger every component in this module
// writes through (pkg/engine, pkg/transport/filetransport,
// pkg/transport/staging, pkg/runtimeenv). It stands in for
// spec.md §1's "logger" external collaborator.
//
// Each severity gets its own *log.Logger pair (plain and timestamped) and
// output writer, tagged with the systemd sd-daemon priority prefixes
// (https://www.freedesktop.org/software/systemd/man/sd-daemon.html) so a
// process running under systemd can skip the timestamp — journald already
// stamps received lines — while SetDateTime opts a non-systemd deployment
// back into an explicit one. SetLevel silences every severity below a
// threshold by swapping its writer to io.Discard, which also disables the
// (relatively expensive) caller-location lookup log.Llongfile/Lshortfile
// trigger for messages that will never be printed.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
)

// Level is one log severity, ordered least to most severe.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelNotice
	LevelWarn
	LevelError
	LevelCrit
	numLevels
)

// String names a level by its short form, also accepted by SetLevel.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelNotice:
		return "notice"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "err"
	case LevelCrit:
		return "crit"
	default:
		return "unknown"
	}
}

// sink bundles one severity's writer and its two loggers (plain, and with
// an explicit timestamp prepended), so enabling/disabling the severity and
// toggling the timestamp are both single-field swaps rather than six
// independent global variables drifting out of sync with each other.
type sink struct {
	prefix  string
	flags   int // caller-location flags: 0, stdlog.Lshortfile, or stdlog.Llongfile
	writer  io.Writer
	plain   *stdlog.Logger
	stamped *stdlog.Logger
}

func newSink(prefix string, flags int) *sink {
	return &sink{
		prefix:  prefix,
		flags:   flags,
		writer:  os.Stderr,
		plain:   stdlog.New(os.Stderr, prefix, flags),
		stamped: stdlog.New(os.Stderr, prefix, flags|stdlog.LstdFlags),
	}
}

func (s *sink) setEnabled(enabled bool) {
	if enabled {
		s.writer = os.Stderr
	} else {
		s.writer = io.Discard
	}
	s.plain.SetOutput(s.writer)
	s.stamped.SetOutput(s.writer)
}

// sinks is indexed by Level; priority numbers match the syslog/sd-daemon
// convention (7=debug down to 2=crit), lower meaning more severe.
var sinks = [numLevels]*sink{
	LevelDebug:  newSink("<7>[DEBUG]    ", 0),
	LevelInfo:   newSink("<6>[INFO]     ", 0),
	LevelNotice: newSink("<5>[NOTICE]   ", stdlog.Lshortfile),
	LevelWarn:   newSink("<4>[WARNING]  ", stdlog.Lshortfile),
	LevelError:  newSink("<3>[ERROR]    ", stdlog.Llongfile),
	LevelCrit:   newSink("<2>[CRITICAL] ", stdlog.Llongfile),
}

var useTimestamp bool

func (s *sink) logger() *stdlog.Logger {
	if useTimestamp {
		return s.stamped
	}
	return s.plain
}

/* CONFIG */

// SetLevel enables lvl and every more severe level, discarding everything
// below it. Unknown names fall back to "debug" (every level enabled).
func SetLevel(lvl string) {
	threshold := LevelDebug
	found := false
	for l := LevelDebug; l < numLevels; l++ {
		if l.String() == lvl {
			threshold = l
			found = true
			break
		}
	}
	// "fatal" is accepted as a synonym for the err threshold: Fatal logs at
	// LevelCrit before exiting, and filtering below err keeps both Fatal's
	// output and every other error.
	if lvl == "fatal" {
		threshold = LevelError
		found = true
	}
	if !found && lvl != "" {
		fmt.Fprintf(os.Stderr, "pkg/log: unknown level %q, defaulting to debug\n", lvl)
	}
	for l := LevelDebug; l < numLevels; l++ {
		sinks[l].setEnabled(l >= threshold)
	}
}

// SetDateTime toggles whether every subsequent log line carries an
// explicit timestamp (useful outside systemd, which otherwise supplies one
// on receipt).
func SetDateTime(enabled bool) {
	useTimestamp = enabled
}

/* PRINT */

func emit(l Level, v ...interface{}) {
	s := sinks[l]
	if s.writer == io.Discard {
		return
	}
	s.logger().Output(3, fmt.Sprint(v...))
}

func emitf(l Level, format string, v ...interface{}) {
	s := sinks[l]
	if s.writer == io.Discard {
		return
	}
	s.logger().Output(3, fmt.Sprintf(format, v...))
}

// Print logs at LevelInfo, matching the standard library's log.Print name.
func Print(v ...interface{}) { emit(LevelInfo, v...) }

// Printf logs at LevelInfo with a format string.
func Printf(format string, v ...interface{}) { emitf(LevelInfo, format, v...) }

func Debug(v ...interface{})                  { emit(LevelDebug, v...) }
func Debugf(format string, v ...interface{})  { emitf(LevelDebug, format, v...) }
func Info(v ...interface{})                   { emit(LevelInfo, v...) }
func Infof(format string, v ...interface{})   { emitf(LevelInfo, format, v...) }
func Notice(v ...interface{})                 { emit(LevelNotice, v...) }
func Noticef(format string, v ...interface{}) { emitf(LevelNotice, format, v...) }
func Warn(v ...interface{})                   { emit(LevelWarn, v...) }
func Warnf(format string, v ...interface{})   { emitf(LevelWarn, format, v...) }
func Error(v ...interface{})                  { emit(LevelError, v...) }
func Errorf(format string, v ...interface{})  { emitf(LevelError, format, v...) }
func Crit(v ...interface{})                   { emit(LevelCrit, v...) }
func Critf(format string, v ...interface{})   { emitf(LevelCrit, format, v...) }

// Panic logs at LevelError, then panics, for a failure the caller wants a
// stack trace for without killing the process outright.
func Panic(v ...interface{}) {
	Error(v...)
	panic(fmt.Sprint(v...))
}

// Panicf is Panic with a format string.
func Panicf(format string, v ...interface{}) {
	Errorf(format, v...)
	panic(fmt.Sprintf(format, v...))
}

// Fatal logs at LevelCrit, then exits the process. Used for failures the
// engine cannot proceed past (e.g. GetEngine called before Init).
func Fatal(v ...interface{}) {
	Crit(v...)
	os.Exit(1)
}

// Fatalf is Fatal with a format string.
func Fatalf(format string, v ...interface{}) {
	Critf(format, v...)
	os.Exit(1)
}
