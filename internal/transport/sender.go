package transport

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/util"
)

const (
	highWaterMark  = 256 * 1024 // pause sending when bufferedAmount exceeds this
	lowWaterMark   = 64 * 1024  // resume sending when bufferedAmount drops below this
	sendBufferSize = 64         // outgoing message channel capacity
)

// ErrSendQueueFull is returned by Send when the outgoing buffer is full.
var ErrSendQueueFull = errors.New("send queue full")

// sender is a goroutine-based message writer that serializes all writes to a
// single DataChannel, adding open-gate and backpressure control.
type sender struct {
	name        string
	inbox       chan []byte
	drainSignal chan struct{}
}

// newSender creates a sender, wires the backpressure callbacks on dc, and
// starts the background loop. The loop exits when ctx is cancelled.
func newSender(ctx context.Context, name string, dc *webrtc.DataChannel, openSignal <-chan struct{}) *sender {
	s := &sender{
		name:        name,
		inbox:       make(chan []byte, sendBufferSize),
		drainSignal: make(chan struct{}, 1),
	}

	dc.SetBufferedAmountLowThreshold(uint64(lowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case s.drainSignal <- struct{}{}:
		default:
		}
	})

	go s.loop(ctx, dc, openSignal)

	return s
}

// loop is the single-writer goroutine. It waits for the DataChannel to open,
// then drains the inbox with backpressure awareness.
func (s *sender) loop(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}) {
	// Phase 1: wait for DC to be open.
	select {
	case <-openSignal:
	case <-ctx.Done():
		return
	}

	// Phase 2: send with backpressure.
	for {
		select {
		case msg := <-s.inbox:
			if dc.BufferedAmount() > uint64(highWaterMark) {
				select {
				case <-s.drainSignal:
				case <-ctx.Done():
					return
				}
			}

			if err := dc.Send(msg); err != nil {
				util.LogError("%s: failed to send %d bytes: %v", s.name, len(msg), err)
				return
			}
			util.Trace(s.name, util.OriginSender, "sent %d bytes", len(msg))
		case <-ctx.Done():
			return
		}
	}
}

// send enqueues msg for transmission without blocking.
func (s *sender) send(msg []byte) error {
	select {
	case s.inbox <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}
