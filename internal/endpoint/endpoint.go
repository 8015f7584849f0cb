// Package endpoint implements the per-participant negotiation state machine.
//
// An Endpoint drives one engine through the handshake: create or await the
// local description, accept the remote description, exchange connectivity
// candidates, and detect the open data path. Commands come from the
// negotiation driver; engine notifications arrive through the bridge on
// engine-owned goroutines. Subscribers are notified outside the endpoint's
// lock.
package endpoint

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/bridge"
	"github.com/1ureka/rtcpair/internal/util"
)

// Compile-time interface check.
var _ bridge.Sink = (*Endpoint)(nil)

// Engine is the command surface of the connectivity engine. Description
// operations are asynchronous and resolve through bridge notifications.
type Engine interface {
	CreateOffer()
	CreateAnswer()
	SetLocalDescription(desc webrtc.SessionDescription)
	SetRemoteDescription(desc webrtc.SessionDescription)
	AddICECandidate(c webrtc.ICECandidateInit) error
	Send(payload []byte) error
	Close() error
}

// Endpoint is one participant of a two-party session. It is owned by the
// orchestrator that created it and never shared.
type Endpoint struct {
	name   string
	engine Engine

	mu         sync.Mutex
	state      State
	offerer    bool
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	remoteSet  bool
	candidates []webrtc.ICECandidateInit // gathered locally, append-only
	dataOpen   bool
	signaling  webrtc.SignalingState
	err        error

	onSDPReady       func(webrtc.SessionDescription)
	onICECandidate   func(webrtc.ICECandidateInit)
	onRemoteAccepted func()
	onDataReady      func()
	onMessage        func([]byte)
	onFailure        func(error)
}

// New creates an Endpoint in the Idle state. The caller binds the engine's
// notifications to it with bridge.Bind and then calls Init.
func New(name string, engine Engine) *Endpoint {
	return &Endpoint{
		name:   name,
		engine: engine,
		state:  StateIdle,
	}
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

// OnSDPReady registers the sdp-ready handler, fired once with the local description.
func (e *Endpoint) OnSDPReady(fn func(webrtc.SessionDescription)) {
	e.mu.Lock()
	e.onSDPReady = fn
	e.mu.Unlock()
}

// OnICECandidate registers the ice-candidate handler, fired per local candidate.
func (e *Endpoint) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	e.mu.Lock()
	e.onICECandidate = fn
	e.mu.Unlock()
}

// OnRemoteAccepted registers the remote-accepted handler.
func (e *Endpoint) OnRemoteAccepted(fn func()) {
	e.mu.Lock()
	e.onRemoteAccepted = fn
	e.mu.Unlock()
}

// OnDataReady registers the data-ready handler, fired at most once.
func (e *Endpoint) OnDataReady(fn func()) {
	e.mu.Lock()
	e.onDataReady = fn
	e.mu.Unlock()
}

// OnMessage registers the message-received handler.
func (e *Endpoint) OnMessage(fn func([]byte)) {
	e.mu.Lock()
	e.onMessage = fn
	e.mu.Unlock()
}

// OnFailure registers the handler fired once when the endpoint enters Failed.
func (e *Endpoint) OnFailure(fn func(error)) {
	e.mu.Lock()
	e.onFailure = fn
	e.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Name returns the endpoint's identity.
func (e *Endpoint) Name() string { return e.name }

// State returns the current lifecycle state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the fatal error that moved the endpoint to Failed, if any.
func (e *Endpoint) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Candidates returns a copy of the locally gathered candidates in discovery order.
func (e *Endpoint) Candidates() []webrtc.ICECandidateInit {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]webrtc.ICECandidateInit, len(e.candidates))
	copy(out, e.candidates)
	return out
}

// SignalingState returns the last signaling state reported by the engine.
func (e *Endpoint) SignalingState() webrtc.SignalingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.signaling
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// Init marks the engine as constructed and ready for a handshake.
func (e *Endpoint) Init() error {
	e.mu.Lock()
	if e.state != StateIdle {
		return e.failLocked(&StateError{Op: "init", State: e.state})
	}
	e.state = StateFactoryReady
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "init")
	return nil
}

// CreateOffer asks the engine for a data channel and an offer. The result
// arrives through HandleDescriptionCreated.
func (e *Endpoint) CreateOffer() error {
	e.mu.Lock()
	if e.state != StateFactoryReady {
		return e.failLocked(&StateError{Op: "create offer", State: e.state})
	}
	e.offerer = true
	e.state = StateOffering
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "create_offer_sdp")
	e.engine.CreateOffer()
	return nil
}

// CreateAnswer applies offer as the remote description and asks the engine
// for an answer. A malformed offer is fatal.
func (e *Endpoint) CreateAnswer(offer webrtc.SessionDescription) error {
	e.mu.Lock()
	if e.state != StateFactoryReady {
		return e.failLocked(&StateError{Op: "create answer", State: e.state})
	}
	if err := validateDescription(offer, webrtc.SDPTypeOffer); err != nil {
		return e.failLocked(err)
	}
	e.state = StateAnswering
	e.remote = &offer
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "create_answer_sdp")
	e.engine.SetRemoteDescription(offer)
	e.engine.CreateAnswer()
	return nil
}

// AcceptRemoteDescription applies the peer's answer on the offering side.
// A malformed answer is fatal.
func (e *Endpoint) AcceptRemoteDescription(answer webrtc.SessionDescription) error {
	e.mu.Lock()
	if !e.offerer || e.remote != nil || e.state != StateLocalDescriptionSet {
		return e.failLocked(&StateError{Op: "accept remote description", State: e.state})
	}
	if err := validateDescription(answer, webrtc.SDPTypeAnswer); err != nil {
		return e.failLocked(err)
	}
	e.remote = &answer
	e.state = StateRemoteDescriptionPending
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "push_reply_sdp")
	e.engine.SetRemoteDescription(answer)
	return nil
}

// SubmitRemoteCandidate hands a candidate discovered by the peer to the
// engine. Submitting before the remote description is accepted, or
// submitting a malformed candidate, is fatal.
func (e *Endpoint) SubmitRemoteCandidate(c webrtc.ICECandidateInit) error {
	e.mu.Lock()
	if e.state.Terminal() {
		return e.failLocked(&StateError{Op: "submit candidate", State: e.state})
	}
	if !e.remoteSet {
		return e.failLocked(ErrRemoteDescriptionMissing)
	}
	if err := validateCandidate(c); err != nil {
		return e.failLocked(err)
	}
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "push_ice")
	if err := e.engine.AddICECandidate(c); err != nil {
		return e.fail(&CandidateError{Candidate: c.Candidate, Err: err})
	}
	util.Stats.AddSubmitted()

	e.mu.Lock()
	e.advanceLocked(StateCandidateExchange)
	e.mu.Unlock()
	return nil
}

// Send hands payload to the engine. It never blocks; delivery is the
// engine's contract.
func (e *Endpoint) Send(payload []byte) error {
	e.mu.Lock()
	if e.state != StateDataPathOpen {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("send: %w (state %s)", ErrDataPathNotOpen, state)
	}
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "send(%d bytes)", len(payload))
	if err := e.engine.Send(payload); err != nil {
		return err
	}
	util.Stats.AddSent(len(payload))
	return nil
}

// Close releases the engine and the description state. Calling Close more
// than once is a no-op.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return nil
	}
	e.state = StateClosed
	e.local = nil
	e.remote = nil
	e.candidates = nil
	e.dataOpen = false
	e.mu.Unlock()

	util.Trace(e.name, util.OriginDriver, "quit")
	return e.engine.Close()
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// advanceLocked moves forward to s; it never moves backwards or out of a
// terminal state.
func (e *Endpoint) advanceLocked(s State) {
	if e.state.Terminal() || s <= e.state {
		return
	}
	e.state = s
}

// failLocked enters Failed, releases the lock, notifies the failure handler
// and returns err. The caller must hold e.mu.
func (e *Endpoint) failLocked(err error) error {
	first := e.err == nil && e.state != StateClosed
	if first {
		e.err = err
		e.state = StateFailed
	}
	fn := e.onFailure
	e.mu.Unlock()

	if first {
		util.LogError("%s: %v", e.name, err)
		if fn != nil {
			fn(err)
		}
	}
	return err
}

func (e *Endpoint) fail(err error) error {
	e.mu.Lock()
	return e.failLocked(err)
}
