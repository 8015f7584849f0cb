package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Initiator != (Peer{Name: "webrtc1", Payload: "message1"}) {
		t.Errorf("Initiator = %+v", cfg.Initiator)
	}
	if cfg.Responder != (Peer{Name: "webrtc2", Payload: "message2"}) {
		t.Errorf("Responder = %+v", cfg.Responder)
	}
	if len(cfg.STUN) != 1 || cfg.STUN[0] != "stun:stun.l.google.com:19302" {
		t.Errorf("STUN = %v", cfg.STUN)
	}
	if cfg.Relay != RelayDirect {
		t.Errorf("Relay = %q, want %q", cfg.Relay, RelayDirect)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s", cfg.Timeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RTCPAIR_RELAY", "WebSocket")
	t.Setenv("RTCPAIR_RESPONDER_NAME", "bob")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Relay != RelayWebSocket {
		t.Errorf("Relay = %q, want %q", cfg.Relay, RelayWebSocket)
	}
	if cfg.Responder.Name != "bob" {
		t.Errorf("Responder.Name = %q, want bob", cfg.Responder.Name)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtcpair.yaml")
	body := "timeout: 5s\nloopback: true\ninitiator:\n  payload: ping\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timeout != 5*time.Second || !cfg.Loopback || cfg.Initiator.Payload != "ping" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Initiator.Name != "webrtc1" {
		t.Errorf("default lost: Initiator.Name = %q", cfg.Initiator.Name)
	}
}

func TestValidateRejects(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"same names", func(c *Config) { c.Responder.Name = c.Initiator.Name }, "names must differ"},
		{"empty name", func(c *Config) { c.Initiator.Name = "" }, "names must not be empty"},
		{"same payloads", func(c *Config) { c.Responder.Payload = c.Initiator.Payload }, "payloads must differ"},
		{"bad stun", func(c *Config) { c.STUN = []string{"http://example.com"} }, "invalid STUN URI"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"bad relay", func(c *Config) { c.Relay = "carrier-pigeon" }, "unknown relay"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(New())
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}
