// Package config holds the run configuration and its viper wiring.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Role is the part an endpoint plays in the handshake.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleResponder Role = "responder"
)

// RelayMode selects how signaling messages travel between the two endpoints.
type RelayMode string

const (
	RelayDirect    RelayMode = "direct"    // in-memory hand-over
	RelayWebSocket RelayMode = "websocket" // loopback WebSocket server
)

// Configuration keys.
const (
	KeySTUN              = "stun"
	KeyInitiatorName     = "initiator.name"
	KeyInitiatorPayload  = "initiator.payload"
	KeyResponderName     = "responder.name"
	KeyResponderPayload  = "responder.payload"
	KeyTimeout           = "timeout"
	KeyRelay             = "relay"
	KeyLoopback          = "loopback"
	KeyDebug             = "debug"
	KeyTrace             = "trace"
	KeyStatsInterval     = "stats.interval"
	envPrefix            = "RTCPAIR"
	defaultSTUN          = "stun:stun.l.google.com:19302"
	defaultTimeout       = 30 * time.Second
	defaultStatsInterval = 5 * time.Second
)

// Peer describes one endpoint of the pair.
type Peer struct {
	Name    string // trace tag and identity
	Payload string // test message this endpoint sends once the data path is open
}

// Config stores every parameter of a single negotiation run.
type Config struct {
	STUN          []string      // ICE server URIs handed to both engines at construction
	Initiator     Peer          // offers
	Responder     Peer          // answers
	Timeout       time.Duration // bound on the whole run
	Relay         RelayMode
	Loopback      bool // gather loopback host candidates
	Debug         bool
	Trace         bool          // also show pion's own debug output
	StatsInterval time.Duration // 0 disables the periodic reporter
}

// New returns a viper instance with defaults and RTCPAIR_* environment
// binding applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults installs the reference run: webrtc1 sends message1, webrtc2
// sends message2, both using Google's public STUN server.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySTUN, []string{defaultSTUN})
	v.SetDefault(KeyInitiatorName, "webrtc1")
	v.SetDefault(KeyInitiatorPayload, "message1")
	v.SetDefault(KeyResponderName, "webrtc2")
	v.SetDefault(KeyResponderPayload, "message2")
	v.SetDefault(KeyTimeout, defaultTimeout)
	v.SetDefault(KeyRelay, string(RelayDirect))
	v.SetDefault(KeyLoopback, false)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyTrace, false)
	v.SetDefault(KeyStatsInterval, defaultStatsInterval)
}

// ReadFile merges an optional config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		STUN: v.GetStringSlice(KeySTUN),
		Initiator: Peer{
			Name:    v.GetString(KeyInitiatorName),
			Payload: v.GetString(KeyInitiatorPayload),
		},
		Responder: Peer{
			Name:    v.GetString(KeyResponderName),
			Payload: v.GetString(KeyResponderPayload),
		},
		Timeout:       v.GetDuration(KeyTimeout),
		Relay:         RelayMode(strings.ToLower(v.GetString(KeyRelay))),
		Loopback:      v.GetBool(KeyLoopback),
		Debug:         v.GetBool(KeyDebug),
		Trace:         v.GetBool(KeyTrace),
		StatsInterval: v.GetDuration(KeyStatsInterval),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with cfg at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Initiator.Name == "" || c.Responder.Name == "" {
		errs = append(errs, errors.New("endpoint names must not be empty"))
	} else if c.Initiator.Name == c.Responder.Name {
		errs = append(errs, fmt.Errorf("endpoint names must differ (both %q)", c.Initiator.Name))
	}

	// Verification pairs each received payload with the other side's, so
	// identical payloads would make a crossed delivery undetectable.
	if c.Initiator.Payload == "" || c.Responder.Payload == "" {
		errs = append(errs, errors.New("payloads must not be empty"))
	} else if c.Initiator.Payload == c.Responder.Payload {
		errs = append(errs, fmt.Errorf("payloads must differ (both %q)", c.Initiator.Payload))
	}

	for _, uri := range c.STUN {
		if !strings.HasPrefix(uri, "stun:") && !strings.HasPrefix(uri, "stuns:") {
			errs = append(errs, fmt.Errorf("invalid STUN URI %q", uri))
		}
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}

	switch c.Relay {
	case RelayDirect, RelayWebSocket:
	default:
		errs = append(errs, fmt.Errorf("unknown relay %q (want %s or %s)", c.Relay, RelayDirect, RelayWebSocket))
	}

	return errors.Join(errs...)
}

// PeerFor returns the peer configured for role.
func (c *Config) PeerFor(role Role) Peer {
	if role == RoleInitiator {
		return c.Initiator
	}
	return c.Responder
}
