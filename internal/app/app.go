// Package app wires configuration, engines, endpoints and the negotiation
// driver into a single run.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/1ureka/rtcpair/internal/bridge"
	"github.com/1ureka/rtcpair/internal/config"
	"github.com/1ureka/rtcpair/internal/endpoint"
	"github.com/1ureka/rtcpair/internal/negotiation"
	"github.com/1ureka/rtcpair/internal/relay"
	"github.com/1ureka/rtcpair/internal/transport"
	"github.com/1ureka/rtcpair/internal/util"
)

// Compile-time interface checks.
var (
	_ endpoint.Engine  = (*transport.Transport)(nil)
	_ negotiation.Peer = (*endpoint.Endpoint)(nil)
)

// Setup performs process-scoped initialization and returns the matching
// teardown. Call it once at start; call the teardown once at shutdown.
func Setup(ctx context.Context, cfg *config.Config) (teardown func()) {
	switch {
	case cfg.Trace:
		util.EnableTrace()
	case cfg.Debug:
		util.EnableDebug()
	}

	statsCtx, cancel := context.WithCancel(ctx)
	util.StartStatsReporter(statsCtx, cfg.StatsInterval)

	return func() {
		cancel()
		util.LogDebug("final stats: %s", util.FormatStats(util.Stats.Snapshot()))
	}
}

// Run negotiates the configured pair and verifies the message round trip.
// The whole run is bounded by cfg.Timeout.
func Run(ctx context.Context, cfg *config.Config) (*negotiation.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	carrier, err := relay.New(ctx, cfg.Relay)
	if err != nil {
		return nil, fmt.Errorf("starting %s relay: %w", cfg.Relay, err)
	}
	defer carrier.Close()

	a, err := newParticipant(ctx, cfg, config.RoleInitiator)
	if err != nil {
		return nil, err
	}
	b, err := newParticipant(ctx, cfg, config.RoleResponder)
	if err != nil {
		return nil, errors.Join(err, a.Peer.Close())
	}

	util.LogInfo("negotiating %s -> %s over %s relay", cfg.Initiator.Name, cfg.Responder.Name, cfg.Relay)
	return negotiation.New(carrier).Run(ctx, a, b)
}

// newParticipant builds the engine and state machine for role and binds
// them together.
func newParticipant(ctx context.Context, cfg *config.Config, role config.Role) (negotiation.Participant, error) {
	peer := cfg.PeerFor(role)

	tr, err := transport.New(ctx, transport.Options{
		Name:     peer.Name,
		STUN:     cfg.STUN,
		Loopback: cfg.Loopback,
	})
	if err != nil {
		return negotiation.Participant{}, fmt.Errorf("creating %s engine: %w", peer.Name, err)
	}

	ep := endpoint.New(peer.Name, tr)
	bridge.Bind(tr, ep)

	return negotiation.Participant{Peer: ep, Payload: []byte(peer.Payload)}, nil
}
