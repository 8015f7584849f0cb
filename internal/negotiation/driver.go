// Package negotiation sequences two endpoints through a complete handshake
// and a verified message exchange.
//
// The driver runs on the caller's goroutine. Endpoint events arrive on engine
// goroutines and are recorded in a session guarded by a syncq.Queue; every
// step of the script blocks on a predicate over that session. Any endpoint
// failure is recorded on the queue and ends the run.
package negotiation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/relay"
	"github.com/1ureka/rtcpair/internal/util"
)

// Peer is the endpoint surface the driver needs. *endpoint.Endpoint
// implements it.
type Peer interface {
	Name() string
	Init() error
	CreateOffer() error
	CreateAnswer(offer webrtc.SessionDescription) error
	AcceptRemoteDescription(answer webrtc.SessionDescription) error
	SubmitRemoteCandidate(c webrtc.ICECandidateInit) error
	Send(payload []byte) error
	Close() error
	SignalingState() webrtc.SignalingState

	OnSDPReady(fn func(webrtc.SessionDescription))
	OnICECandidate(fn func(webrtc.ICECandidateInit))
	OnRemoteAccepted(fn func())
	OnDataReady(fn func())
	OnMessage(fn func([]byte))
	OnFailure(fn func(error))
}

// Participant pairs an endpoint with the payload it sends once the data path
// is open.
type Participant struct {
	Peer    Peer
	Payload []byte
}

// Delivery records one candidate handed from one endpoint to the other.
type Delivery struct {
	From      string
	To        string
	Candidate string
}

// SideResult summarizes one endpoint's part of a run.
type SideResult struct {
	Name        string
	Sent        string
	Received    string
	Gathered    int
	Delivered   int
	Undelivered int // still queued when the endpoints closed
}

// Result describes a completed run.
type Result struct {
	Initiator  SideResult
	Responder  SideResult
	Deliveries []Delivery // in submission order
	Elapsed    time.Duration
}

// Driver runs the negotiation script over a signaling carrier.
type Driver struct {
	carrier relay.Carrier
}

// New returns a Driver that moves descriptions and candidates through carrier.
func New(carrier relay.Carrier) *Driver {
	return &Driver{carrier: carrier}
}

// Run negotiates a (initiator) with b (responder), exchanges payloads and
// verifies them. Both endpoints are closed before Run returns, on every path.
// ctx bounds every wait. Errors from closing the endpoints are logged and
// never change the outcome.
func (d *Driver) Run(ctx context.Context, a, b Participant) (res *Result, err error) {
	start := time.Now()
	ss := newSession(a, b)
	ss.subscribe(ss.a)
	ss.subscribe(ss.b)
	res = &Result{}

	defer func() {
		if err != nil {
			for _, p := range []Peer{a.Peer, b.Peer} {
				util.Trace(p.Name(), util.OriginDriver, "signaling state at failure: %s", p.SignalingState())
			}
		}
		if cerr := closeBoth(a.Peer, b.Peer); cerr != nil {
			util.LogWarning("closing endpoints: %v", cerr)
		}
		ss.q.Do(func() {
			res.Initiator = summarize(ss.a)
			res.Responder = summarize(ss.b)
		})
		for _, s := range []SideResult{res.Initiator, res.Responder} {
			if s.Undelivered > 0 {
				util.Trace(s.Name, util.OriginDriver, "%d late candidates not delivered", s.Undelivered)
			}
		}
		res.Elapsed = time.Since(start)
	}()

	if err := errors.Join(a.Peer.Init(), b.Peer.Init()); err != nil {
		return res, fmt.Errorf("initializing endpoints: %w", err)
	}

	if err := d.exchangeDescriptions(ctx, ss); err != nil {
		return res, err
	}
	if err := d.exchangeCandidates(ctx, ss, res); err != nil {
		return res, err
	}
	if err := d.exchangeMessages(ctx, ss); err != nil {
		return res, err
	}

	// Both messages arrived, so the round trip is checked even when handing
	// over late candidates fails.
	verr := verify(ss)
	return res, errors.Join(verr, d.flush(ctx, ss, res))
}

// exchangeDescriptions runs the offer/answer part of the script.
func (d *Driver) exchangeDescriptions(ctx context.Context, ss *session) error {
	a, b := ss.a.peer, ss.b.peer

	if err := a.CreateOffer(); err != nil {
		return peerError(a, err)
	}
	offer, err := d.awaitDescription(ctx, ss, ss.a)
	if err != nil {
		return err
	}
	util.LogInfo("%s: offer ready", a.Name())

	if err := b.CreateAnswer(offer); err != nil {
		return peerError(b, err)
	}
	answer, err := d.awaitDescription(ctx, ss, ss.b)
	if err != nil {
		return err
	}
	util.LogInfo("%s: answer ready", b.Name())

	return peerError(a, a.AcceptRemoteDescription(answer))
}

// awaitDescription blocks until s produced a description, then carries it to
// the other side.
func (d *Driver) awaitDescription(ctx context.Context, ss *session, s *side) (webrtc.SessionDescription, error) {
	name := s.peer.Name()
	if err := ss.q.WaitUntil(ctx, s.hasDescription); err != nil {
		return webrtc.SessionDescription{}, waitError(name+" description", err)
	}

	var desc webrtc.SessionDescription
	ss.q.Do(func() { desc = *s.desc })

	msg, err := d.carrier.Carry(ctx, relay.DescriptionMessage(name, desc))
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("carrying %s description: %w", name, err)
	}
	return msg.Description()
}

// exchangeCandidates waits until both sides accepted their remote
// description, then drains the candidate queues one from each side per
// iteration until both data paths are open and nothing is left to deliver.
func (d *Driver) exchangeCandidates(ctx context.Context, ss *session, res *Result) error {
	a, b := ss.a, ss.b

	if err := ss.q.WaitUntil(ctx, func() bool {
		return a.remoteAccepted && b.remoteAccepted
	}); err != nil {
		return waitError("remote descriptions", err)
	}
	util.Trace(a.peer.Name(), util.OriginDriver, "both remote descriptions accepted, draining candidates")

	for {
		if err := ss.q.Err(); err != nil {
			return err
		}
		moved, err := d.drainStep(ctx, ss, res)
		if err != nil {
			return err
		}
		if moved {
			continue
		}

		var done bool
		ss.q.Do(func() {
			done = a.dataReady && b.dataReady && len(a.pending) == 0 && len(b.pending) == 0
		})
		if done {
			break
		}
		if err := ss.q.WaitUntil(ctx, func() bool {
			return len(a.pending) > 0 || len(b.pending) > 0 || (a.dataReady && b.dataReady)
		}); err != nil {
			return waitError("candidates or data path", err)
		}
	}

	util.LogSuccess("data path open on both endpoints")
	return nil
}

// flush delivers candidates still queued without waiting for more.
func (d *Driver) flush(ctx context.Context, ss *session, res *Result) error {
	for {
		moved, err := d.drainStep(ctx, ss, res)
		if err != nil || !moved {
			return err
		}
	}
}

// drainStep pops at most one candidate from each side and delivers them,
// A to B first. It reports whether anything was delivered.
func (d *Driver) drainStep(ctx context.Context, ss *session, res *Result) (bool, error) {
	var (
		fromA, fromB webrtc.ICECandidateInit
		okA, okB     bool
	)
	ss.q.Do(func() {
		fromA, okA = ss.a.pop()
		fromB, okB = ss.b.pop()
	})

	if okA {
		if err := d.deliver(ctx, ss, ss.a, ss.b, fromA, res); err != nil {
			return false, err
		}
	}
	if okB {
		if err := d.deliver(ctx, ss, ss.b, ss.a, fromB, res); err != nil {
			return false, err
		}
	}
	return okA || okB, nil
}

// deliver carries c from one side and submits it to the other.
func (d *Driver) deliver(ctx context.Context, ss *session, from, to *side, c webrtc.ICECandidateInit, res *Result) error {
	msg, err := relay.CandidateMessage(from.peer.Name(), c)
	if err != nil {
		return err
	}
	msg, err = d.carrier.Carry(ctx, msg)
	if err != nil {
		return fmt.Errorf("carrying %s candidate: %w", from.peer.Name(), err)
	}
	carried, err := msg.ICECandidate()
	if err != nil {
		return err
	}

	if err := to.peer.SubmitRemoteCandidate(carried); err != nil {
		return peerError(to.peer, err)
	}

	ss.q.Do(func() { from.delivered++ })
	res.Deliveries = append(res.Deliveries, Delivery{
		From:      from.peer.Name(),
		To:        to.peer.Name(),
		Candidate: carried.Candidate,
	})
	return nil
}

// exchangeMessages sends each side's payload and waits for both to arrive.
func (d *Driver) exchangeMessages(ctx context.Context, ss *session) error {
	for _, s := range []*side{ss.a, ss.b} {
		if err := s.peer.Send(s.payload); err != nil {
			return peerError(s.peer, err)
		}
	}

	if err := ss.q.WaitUntil(ctx, func() bool {
		return len(ss.a.received) > 0 && len(ss.b.received) > 0
	}); err != nil {
		return waitError("messages", err)
	}
	return nil
}

// verify checks that each side received exactly the other side's payload.
func verify(ss *session) error {
	var errs []error
	ss.q.Do(func() {
		for _, pair := range [][2]*side{{ss.a, ss.b}, {ss.b, ss.a}} {
			got, want := pair[0].received[0], pair[1].payload
			if !bytes.Equal(got, want) {
				errs = append(errs, &VerificationError{
					Peer: pair[0].peer.Name(),
					Want: string(want),
					Got:  string(got),
				})
			}
		}
	})
	return errors.Join(errs...)
}

func summarize(s *side) SideResult {
	r := SideResult{
		Name:        s.peer.Name(),
		Sent:        string(s.payload),
		Gathered:    s.gathered,
		Delivered:   s.delivered,
		Undelivered: len(s.pending),
	}
	if len(s.received) > 0 {
		r.Received = string(s.received[0])
	}
	return r
}

func peerError(p Peer, err error) error {
	if err == nil {
		return nil
	}
	return &PeerError{Peer: p.Name(), Err: err}
}

func closeBoth(a, b Peer) error {
	return errors.Join(a.Close(), b.Close())
}

// waitError names the step a failed wait belonged to. Endpoint failures are
// returned as they are.
func waitError(what string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	return err
}
