// Package transport adapts a pion PeerConnection into the asynchronous
// engine surface consumed by the endpoint state machine.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/bridge"
	"github.com/1ureka/rtcpair/internal/util"
)

// ErrNoDataChannel is returned by Send before a data channel exists.
var ErrNoDataChannel = errors.New("no data channel")

// Transport wraps a single PeerConnection and its data channel.
//
// Description operations (create offer/answer, set local/remote) are queued
// onto one operation goroutine and executed in submission order; their
// results are delivered through the OnDescription* handlers from that
// goroutine. Candidate, channel and message notifications arrive on pion's
// own goroutines.
type Transport struct {
	name string
	pc   *webrtc.PeerConnection

	ctx    context.Context
	cancel context.CancelFunc

	opMu   sync.Mutex
	ops    []func()
	notify chan struct{}

	mu         sync.RWMutex
	dc         *webrtc.DataChannel
	sender     *sender
	openSignal chan struct{}
	h          handlerSet

	closeOnce sync.Once
	closeErr  error
}

type handlerSet struct {
	signaling func(webrtc.SignalingState)
	candidate func(webrtc.ICECandidateInit)
	channel   func(string)
	dcState   func(webrtc.DataChannelState)
	message   func([]byte)
	set       func(bridge.Target, error)
	created   func(webrtc.SessionDescription, error)
}

// Compile-time interface check.
var _ bridge.Source = (*Transport)(nil)

// New creates a Transport backed by a new PeerConnection. No data channel
// exists until CreateOffer runs or the peer announces one.
func New(ctx context.Context, opts Options) (*Transport, error) {
	pc, err := newPeerConnection(newAPI(opts), opts.STUN)
	if err != nil {
		return nil, err
	}

	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		name:       opts.Name,
		pc:         pc,
		ctx:        tCtx,
		cancel:     tCancel,
		notify:     make(chan struct{}, 1),
		openSignal: make(chan struct{}),
	}

	pc.OnSignalingStateChange(func(state webrtc.SignalingState) {
		if fn := t.handlers().signaling; fn != nil {
			fn(state)
		}
	})

	// A nil candidate signals the end of gathering.
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			util.Trace(t.name, util.OriginNetwork, "candidate gathering complete")
			return
		}
		if fn := t.handlers().candidate; fn != nil {
			fn(c.ToJSON())
		}
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		t.adopt(dc)
		if fn := t.handlers().channel; fn != nil {
			fn(dc.Label())
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.Trace(t.name, util.OriginNetwork, "PeerConnection state: %s", state)
	})

	go t.run()

	return t, nil
}

// ---------------------------------------------------------------------------
// Operation queue
// ---------------------------------------------------------------------------

// submit queues op for the operation goroutine. It never blocks, so result
// handlers may submit follow-up operations.
func (t *Transport) submit(op func()) {
	t.opMu.Lock()
	t.ops = append(t.ops, op)
	t.opMu.Unlock()

	select {
	case t.notify <- struct{}{}:
	default:
	}
}

func (t *Transport) next() func() {
	t.opMu.Lock()
	defer t.opMu.Unlock()
	if len(t.ops) == 0 {
		return nil
	}
	op := t.ops[0]
	t.ops = t.ops[1:]
	return op
}

func (t *Transport) run() {
	for {
		select {
		case <-t.notify:
		case <-t.ctx.Done():
			return
		}
		for op := t.next(); op != nil; op = t.next() {
			if t.ctx.Err() != nil {
				return
			}
			op()
		}
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Close shuts down the DataChannel and PeerConnection. Later calls return
// the result of the first.
//
// Only the PeerConnection's error is returned. Closing the channel sends a
// stream reset, which fails once the remote side has already torn the
// association down; the PeerConnection closes the channel either way.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()

		t.mu.RLock()
		dc := t.dc
		t.mu.RUnlock()

		if dc != nil {
			if err := dc.Close(); err != nil {
				util.Trace(t.name, util.OriginNetwork, "data channel close: %v", err)
			}
		}
		t.closeErr = t.pc.Close()
	})
	return t.closeErr
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

// CreateOffer creates the data channel and then an SDP offer.
func (t *Transport) CreateOffer() {
	t.submit(func() {
		dc, err := newDataChannel(t.pc)
		if err != nil {
			t.created(webrtc.SessionDescription{}, err)
			return
		}
		t.adopt(dc)

		offer, err := t.pc.CreateOffer(nil)
		t.created(offer, err)
	})
}

// CreateAnswer generates an SDP answer.
func (t *Transport) CreateAnswer() {
	t.submit(func() {
		answer, err := t.pc.CreateAnswer(nil)
		t.created(answer, err)
	})
}

// SetLocalDescription applies the local SDP.
func (t *Transport) SetLocalDescription(desc webrtc.SessionDescription) {
	t.submit(func() {
		t.set(bridge.TargetLocal, t.pc.SetLocalDescription(desc))
	})
}

// SetRemoteDescription applies the remote SDP.
func (t *Transport) SetRemoteDescription(desc webrtc.SessionDescription) {
	t.submit(func() {
		t.set(bridge.TargetRemote, t.pc.SetRemoteDescription(desc))
	})
}

// AddICECandidate adds a remote ICE candidate received through signaling.
func (t *Transport) AddICECandidate(c webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(c)
}

func (t *Transport) created(desc webrtc.SessionDescription, err error) {
	util.Trace(t.name, util.OriginSignaling, "create description done")
	if fn := t.handlers().created; fn != nil {
		fn(desc, err)
	}
}

func (t *Transport) set(target bridge.Target, err error) {
	if fn := t.handlers().set; fn != nil {
		fn(target, err)
	}
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// adopt takes ownership of dc: it wires state and message callbacks and
// starts the sender. Only the first channel is adopted.
func (t *Transport) adopt(dc *webrtc.DataChannel) {
	t.mu.Lock()
	if t.dc != nil {
		t.mu.Unlock()
		util.LogWarning("%s: ignoring extra data channel %q", t.name, dc.Label())
		return
	}
	t.dc = dc
	t.sender = newSender(t.ctx, t.name, dc, t.openSignal)
	t.mu.Unlock()

	var openOnce sync.Once
	dc.OnOpen(func() {
		openOnce.Do(func() { close(t.openSignal) })
		t.dcState(webrtc.DataChannelStateOpen)
	})

	dc.OnClose(func() {
		t.dcState(webrtc.DataChannelStateClosed)
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if fn := t.handlers().message; fn != nil {
			fn(msg.Data)
		}
	})

	t.dcState(dc.ReadyState())
}

func (t *Transport) dcState(state webrtc.DataChannelState) {
	if fn := t.handlers().dcState; fn != nil {
		fn(state)
	}
}

// Send enqueues payload for the sender goroutine. It never blocks.
func (t *Transport) Send(payload []byte) error {
	t.mu.RLock()
	s := t.sender
	t.mu.RUnlock()

	if s == nil {
		return ErrNoDataChannel
	}
	return s.send(payload)
}

// ---------------------------------------------------------------------------
// bridge.Source
// ---------------------------------------------------------------------------

func (t *Transport) handlers() handlerSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.h
}

func (t *Transport) OnSignalingStateChange(fn func(webrtc.SignalingState)) {
	t.mu.Lock()
	t.h.signaling = fn
	t.mu.Unlock()
}

func (t *Transport) OnLocalCandidate(fn func(webrtc.ICECandidateInit)) {
	t.mu.Lock()
	t.h.candidate = fn
	t.mu.Unlock()
}

func (t *Transport) OnDataChannel(fn func(label string)) {
	t.mu.Lock()
	t.h.channel = fn
	t.mu.Unlock()
}

func (t *Transport) OnDataChannelStateChange(fn func(webrtc.DataChannelState)) {
	t.mu.Lock()
	t.h.dcState = fn
	t.mu.Unlock()
}

func (t *Transport) OnMessage(fn func([]byte)) {
	t.mu.Lock()
	t.h.message = fn
	t.mu.Unlock()
}

func (t *Transport) OnDescriptionSet(fn func(bridge.Target, error)) {
	t.mu.Lock()
	t.h.set = fn
	t.mu.Unlock()
}

func (t *Transport) OnDescriptionCreated(fn func(webrtc.SessionDescription, error)) {
	t.mu.Lock()
	t.h.created = fn
	t.mu.Unlock()
}
