package app

import (
	"context"
	"testing"
	"time"

	"github.com/1ureka/rtcpair/internal/config"
)

func loopbackConfig(t *testing.T, relay config.RelayMode) *config.Config {
	t.Helper()
	v := config.New()
	v.Set(config.KeySTUN, []string{})
	v.Set(config.KeyLoopback, true)
	v.Set(config.KeyRelay, string(relay))
	v.Set(config.KeyTimeout, "20s")
	v.Set(config.KeyStatsInterval, "0s")

	cfg, err := config.Load(v)
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	return cfg
}

// TestRunLoopback negotiates two real engines over loopback candidates and
// checks the reference message exchange. Each relay runs several times since
// teardown ordering varies between runs.
func TestRunLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates real peer connections")
	}

	const runs = 5
	for _, relay := range []config.RelayMode{config.RelayDirect, config.RelayWebSocket} {
		t.Run(string(relay), func(t *testing.T) {
			cfg := loopbackConfig(t, relay)

			teardown := Setup(context.Background(), cfg)
			defer teardown()

			for i := 0; i < runs; i++ {
				runLoopback(t, cfg, i)
			}
		})
	}
}

func runLoopback(t *testing.T, cfg *config.Config, i int) {
	t.Helper()

	res, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run %d failed: %v", i, err)
	}

	if res.Initiator.Received != "message2" {
		t.Errorf("run %d: %s received %q, want %q", i, res.Initiator.Name, res.Initiator.Received, "message2")
	}
	if res.Responder.Received != "message1" {
		t.Errorf("run %d: %s received %q, want %q", i, res.Responder.Name, res.Responder.Received, "message1")
	}
	if res.Initiator.Gathered == 0 || res.Responder.Gathered == 0 {
		t.Errorf("run %d: no candidates gathered: %+v / %+v", i, res.Initiator, res.Responder)
	}
	if res.Initiator.Delivered == 0 || res.Responder.Delivered == 0 {
		t.Errorf("run %d: no candidates delivered: %+v / %+v", i, res.Initiator, res.Responder)
	}
}

func TestRunRespectsTimeout(t *testing.T) {
	cfg := loopbackConfig(t, config.RelayDirect)
	cfg.Timeout = time.Nanosecond

	start := time.Now()
	if _, err := Run(context.Background(), cfg); err == nil {
		t.Fatal("Run succeeded within a nanosecond")
	}
	if time.Since(start) > 10*time.Second {
		t.Errorf("Run took %s after its deadline", time.Since(start))
	}
}
