// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package baulog provides the per-call tagged logger consumed by the
// pipeline orchestrator and every component it drives. The teacher
// (gofem's fem package) collects diagnostic text through a package-level
// Global struct and calls gosl/io's colored Pf* printers directly; that
// global-mutable-state pattern is exactly what spec.md's design notes (§9)
// flag as something to replace. Logger keeps the teacher's io.Pf-style
// tagged, optionally colored output but owns no package-level state: one
// Logger is allocated per optimize() call and threaded through by
// reference, never shared across concurrent calls.
package baulog

import (
	"fmt"

	"github.com/cpmech/gosl/io"
)

// Line is one captured, tagged diagnostic message.
type Line struct {
	Tag     string // e.g. "Init", "Stage1", "Solve", "Outliers", "Rerun", "Scale", "WARN"
	Message string
}

// Logger collects tagged lines for one optimize() call. The zero value is
// usable (logging is simply discarded unless Verbose is set and lines are
// still recorded for Lines()).
type Logger struct {
	Verbose bool
	lines   []Line
}

// New returns a Logger that prints through gosl/io's colored writers when
// verbose is true, and always retains every line for later inspection via
// Lines().
func New(verbose bool) *Logger {
	return &Logger{Verbose: verbose}
}

// Logf records a tagged, formatted message. Tag should be one of the
// literal tags named in spec.md §6 ("Init", "Stage1", "Solve", "Outliers",
// "Rerun", "Scale", "WARN"); callers must not rely on any other structure
// in Message (spec.md §6: "Content is unspecified beyond tags").
func (l *Logger) Logf(tag, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.lines = append(l.lines, Line{Tag: tag, Message: msg})
	if !l.Verbose {
		return
	}
	switch tag {
	case "WARN":
		io.Pfred("[%s] %s\n", tag, msg)
	case "Outliers", "Rerun":
		io.Pfyel("[%s] %s\n", tag, msg)
	default:
		io.Pf("[%s] %s\n", tag, msg)
	}
}

// Lines returns every line recorded so far, in emission order.
func (l *Logger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}
