package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Origin names the class of goroutine a trace line was emitted from. The
// engine owns its goroutines, so the class is the best identity available.
type Origin string

const (
	OriginDriver    Origin = "driver"    // the negotiation driver
	OriginSignaling Origin = "signaling" // engine operation queue (create/set description)
	OriginNetwork   Origin = "network"   // ICE / SCTP callbacks
	OriginSender    Origin = "sender"    // data channel writer
)

// Leveled logging functions backed by pterm prefixed printers.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// Trace logs an info line tagged with the endpoint name and the goroutine
// class it originated from. Every run prints these.
func Trace(endpoint string, origin Origin, format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...),
		pterm.DefaultLogger.Args("endpoint", endpoint, "origin", string(origin)))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// EnableTrace additionally shows pion's trace-level output.
func EnableTrace() {
	pterm.DefaultLogger.Level = pterm.LogLevelTrace
}
