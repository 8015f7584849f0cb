package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pterm/pterm"
)

// captureLog redirects the default logger into a buffer at its default
// level for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	writer, level := pterm.DefaultLogger.Writer, pterm.DefaultLogger.Level
	pterm.DefaultLogger.Writer = &buf
	pterm.DefaultLogger.Level = pterm.LogLevelInfo
	t.Cleanup(func() {
		pterm.DefaultLogger.Writer = writer
		pterm.DefaultLogger.Level = level
	})
	return &buf
}

func TestTracePrintedByDefault(t *testing.T) {
	buf := captureLog(t)

	Trace("webrtc1", OriginSignaling, "create_offer_sdp")
	out := buf.String()
	for _, want := range []string{"create_offer_sdp", "webrtc1", "signaling"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace output %q does not contain %q", out, want)
		}
	}
}

func TestDebugHiddenByDefault(t *testing.T) {
	buf := captureLog(t)

	LogDebug("pion internals")
	if strings.Contains(buf.String(), "pion internals") {
		t.Errorf("debug line printed at info level: %q", buf.String())
	}
}
