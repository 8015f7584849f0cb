package util

import (
	"strings"
	"testing"
)

func TestFormatBytesFixedWidth(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{0, " 0.0   B"},
		{99, "99.0   B"},
		{1536, " 1.5 KiB"},
		{100 * 1024, " 0.1 MiB"},
	}

	for _, tc := range testCases {
		got := formatBytes(tc.in)
		if got != tc.want {
			t.Errorf("formatBytes(%v) = %q, want %q", tc.in, got, tc.want)
		}
		if len(got) != 8 {
			t.Errorf("formatBytes(%v) has width %d, want 8", tc.in, len(got))
		}
	}
}

func TestStatsCounters(t *testing.T) {
	s := &stats{}
	s.AddGathered()
	s.AddGathered()
	s.AddSubmitted()
	s.AddSent(8)
	s.AddRecv(8)

	snap := s.Snapshot()
	want := StatsSnapshot{Gathered: 2, Submitted: 1, Sent: 1, Recv: 1, BytesSent: 8, BytesRecv: 8}
	if snap != want {
		t.Fatalf("Snapshot() = %+v, want %+v", snap, want)
	}

	line := FormatStats(snap)
	if !strings.Contains(line, " 2 gathered") || !strings.Contains(line, " 1 submitted") {
		t.Errorf("FormatStats() = %q, missing candidate counters", line)
	}
}
