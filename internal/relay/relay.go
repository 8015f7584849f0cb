// Package relay moves signaling messages from one endpoint to the other.
//
// Both endpoints live in the same process, so a carrier is a pipe with one
// entry and one exit. Direct hands messages over in memory; WebSocket sends
// them across a loopback signaling connection so descriptions and candidates
// go through a real encode, write, read and decode cycle.
package relay

import (
	"context"
	"fmt"

	"github.com/1ureka/rtcpair/internal/config"
)

// Carrier delivers one signaling message and returns it as the receiving
// side sees it.
type Carrier interface {
	Carry(ctx context.Context, msg Message) (Message, error)
	Close() error
}

// New starts the carrier selected by mode.
func New(ctx context.Context, mode config.RelayMode) (Carrier, error) {
	switch mode {
	case config.RelayDirect, "":
		return Direct{}, nil
	case config.RelayWebSocket:
		return NewWebSocket(ctx)
	default:
		return nil, fmt.Errorf("unknown relay mode %q", mode)
	}
}

// Direct hands messages over without copying or encoding.
type Direct struct{}

func (Direct) Carry(ctx context.Context, msg Message) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

func (Direct) Close() error { return nil }
