package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide negotiation counter.
var Stats = &stats{}

type stats struct {
	CandidatesGathered  atomic.Int64 // local candidates reported by either engine
	CandidatesSubmitted atomic.Int64 // remote candidates handed to either engine
	MessagesSent        atomic.Int64 // payloads queued on a data channel
	MessagesRecv        atomic.Int64 // payloads delivered by a data channel
	BytesSent           atomic.Int64
	BytesRecv           atomic.Int64
}

func (s *stats) AddGathered()  { s.CandidatesGathered.Add(1) }
func (s *stats) AddSubmitted() { s.CandidatesSubmitted.Add(1) }
func (s *stats) AddSent(n int) {
	s.MessagesSent.Add(1)
	s.BytesSent.Add(int64(n))
}
func (s *stats) AddRecv(n int) {
	s.MessagesRecv.Add(1)
	s.BytesRecv.Add(int64(n))
}

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (s *stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Gathered:  s.CandidatesGathered.Load(),
		Submitted: s.CandidatesSubmitted.Load(),
		Sent:      s.MessagesSent.Load(),
		Recv:      s.MessagesRecv.Load(),
		BytesSent: s.BytesSent.Load(),
		BytesRecv: s.BytesRecv.Load(),
	}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Gathered, Submitted int64
	Sent, Recv          int64
	BytesSent           int64
	BytesRecv           int64
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs negotiation statistics
// every interval while something changed. It stops when ctx is cancelled.
// A non-positive interval disables reporting.
func StartStatsReporter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prev StatsSnapshot
		for {
			select {
			case <-ticker.C:
				cur := Stats.Snapshot()
				if cur != prev {
					pterm.DefaultLogger.Info(FormatStats(cur))
				}
				prev = cur

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// FormatStats renders a snapshot as a single log line.
func FormatStats(s StatsSnapshot) string {
	return fmt.Sprintf("ICE: %2d gathered %2d submitted | Msg: %2d↑ %2d↓ | Bytes: %s↑ %s↓",
		s.Gathered,
		s.Submitted,
		s.Sent,
		s.Recv,
		formatBytes(float64(s.BytesSent)),
		formatBytes(float64(s.BytesRecv)),
	)
}
