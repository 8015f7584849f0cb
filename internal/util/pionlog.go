package util

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/pterm/pterm"
)

// Compile-time interface checks.
var (
	_ logging.LoggerFactory = PionLoggerFactory{}
	_ logging.LeveledLogger = (*pionLogger)(nil)
)

// PionLoggerFactory routes pion's internal logging through the pterm logger,
// tagging every line with the owning endpoint and the pion scope (ice, sctp,
// pc, ...). pion's info output is demoted to debug; it is chatty.
type PionLoggerFactory struct {
	Endpoint string
}

// NewLogger implements logging.LoggerFactory.
func (f PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &pionLogger{endpoint: f.Endpoint, scope: scope}
}

type pionLogger struct {
	endpoint string
	scope    string
}

func (l *pionLogger) args() []pterm.LoggerArgument {
	return pterm.DefaultLogger.Args("endpoint", l.endpoint, "origin", string(OriginNetwork), "pion", l.scope)
}

func (l *pionLogger) Trace(msg string) { pterm.DefaultLogger.Trace(msg, l.args()) }
func (l *pionLogger) Tracef(format string, args ...interface{}) {
	pterm.DefaultLogger.Trace(fmt.Sprintf(format, args...), l.args())
}

func (l *pionLogger) Debug(msg string) { pterm.DefaultLogger.Trace(msg, l.args()) }
func (l *pionLogger) Debugf(format string, args ...interface{}) {
	pterm.DefaultLogger.Trace(fmt.Sprintf(format, args...), l.args())
}

func (l *pionLogger) Info(msg string) { pterm.DefaultLogger.Debug(msg, l.args()) }
func (l *pionLogger) Infof(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...), l.args())
}

func (l *pionLogger) Warn(msg string) { pterm.DefaultLogger.Warn(msg, l.args()) }
func (l *pionLogger) Warnf(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...), l.args())
}

func (l *pionLogger) Error(msg string) { pterm.DefaultLogger.Error(msg, l.args()) }
func (l *pionLogger) Errorf(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...), l.args())
}
