// Package report provides the leveled-logging seam threaded through the
// scrambling controller and CLI by reference, so that crypto/* library
// code never imports a logger directly: only tsscramble and cmd/tsscramble
// hold a Report and log through it.
package report

import (
	"fmt"
	"log/slog"
	"os"

	"hermannm.dev/devlog"
)

// Report is implemented by anything that can receive leveled, printf-style
// log messages. Passed by reference into components that need to report
// diagnostics without owning a logger.
type Report interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// slogReport adapts a *slog.Logger to Report.
type slogReport struct {
	logger *slog.Logger
}

// New builds a Report backed by devlog's human-readable handler, writing to
// w at the given minimum level. devlog renders readable, colorized output
// to a terminal and falls back to structured text when stdout is not a TTY.
func New(w *os.File, level slog.Leveler) Report {
	handler := devlog.NewHandler(w, &devlog.Options{Level: level})
	return &slogReport{logger: slog.New(handler)}
}

// NewDefault builds a Report writing to stdout at info level.
func NewDefault() Report {
	return New(os.Stdout, slog.LevelInfo)
}

func (r *slogReport) Debug(format string, args ...any) { r.logger.Debug(fmt.Sprintf(format, args...)) }
func (r *slogReport) Info(format string, args ...any)  { r.logger.Info(fmt.Sprintf(format, args...)) }
func (r *slogReport) Warn(format string, args ...any)  { r.logger.Warn(fmt.Sprintf(format, args...)) }
func (r *slogReport) Error(format string, args ...any) { r.logger.Error(fmt.Sprintf(format, args...)) }

// Discard is a Report that drops every message, useful as a default for
// components constructed without an explicit Report (e.g. in tests).
var Discard Report = discardReport{}

type discardReport struct{}

func (discardReport) Debug(string, ...any) {}
func (discardReport) Info(string, ...any)  {}
func (discardReport) Warn(string, ...any)  {}
func (discardReport) Error(string, ...any) {}

var (
	_ Report = (*slogReport)(nil)
	_ Report = discardReport{}
)
