package endpoint

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/bridge"
	"github.com/1ureka/rtcpair/internal/util"
)

// The Handle* methods are the bridge.Sink surface. They run on engine
// goroutines. After Close they are no-ops: the engine keeps only a
// non-owning registration and may still deliver late notifications.

// HandleDescriptionCreated records the engine's offer or answer as the local
// description and emits sdp-ready. A repeated delivery is ignored.
func (e *Endpoint) HandleDescriptionCreated(desc webrtc.SessionDescription) {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	if e.local != nil {
		e.mu.Unlock()
		util.Trace(e.name, util.OriginSignaling, "duplicate %s description ignored", desc.Type)
		return
	}
	if e.state != StateOffering && e.state != StateAnswering {
		e.failLocked(&StateError{Op: "description created", State: e.state})
		return
	}
	e.local = &desc
	e.state = StateLocalDescriptionSet
	if e.remoteSet {
		e.state = StateRemoteDescriptionSet
	}
	fn := e.onSDPReady
	e.mu.Unlock()

	e.engine.SetLocalDescription(desc)
	if fn != nil {
		fn(desc)
	}
}

// HandleDescriptionCreateFailure is fatal: no retry policy exists.
func (e *Endpoint) HandleDescriptionCreateFailure(err error) {
	e.fail(&NegotiationError{Op: "create", Err: err})
}

// HandleDescriptionSet emits remote-accepted the first time the remote
// description is confirmed. Local confirmations only advance tracing.
func (e *Endpoint) HandleDescriptionSet(target bridge.Target) {
	if target == bridge.TargetLocal {
		return
	}

	e.mu.Lock()
	if e.state.Terminal() || e.remoteSet {
		e.mu.Unlock()
		return
	}
	e.remoteSet = true
	if e.state == StateRemoteDescriptionPending {
		e.state = StateRemoteDescriptionSet
	}
	fn := e.onRemoteAccepted
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// HandleDescriptionSetFailure is fatal: no retry policy exists.
func (e *Endpoint) HandleDescriptionSetFailure(target bridge.Target, err error) {
	e.fail(&NegotiationError{Op: "set", Target: target, Err: err})
}

// HandleLocalCandidate appends a discovered candidate and emits ice-candidate.
func (e *Endpoint) HandleLocalCandidate(c webrtc.ICECandidateInit) {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	if e.local == nil {
		e.failLocked(ErrCandidateBeforeDescription)
		return
	}
	e.candidates = append(e.candidates, c)
	if e.remoteSet {
		e.advanceLocked(StateCandidateExchange)
	}
	fn := e.onICECandidate
	e.mu.Unlock()

	util.Stats.AddGathered()
	if fn != nil {
		fn(c)
	}
}

// HandleDataChannel notes the channel announced by the engine. The answering
// side learns about the offerer's channel this way; its state changes arrive
// through HandleDataPathState.
func (e *Endpoint) HandleDataChannel(label string) {
	util.Trace(e.name, util.OriginNetwork, "data channel %q announced", label)
}

// HandleDataPathState emits data-ready on the first transition to open.
func (e *Endpoint) HandleDataPathState(state webrtc.DataChannelState) {
	if state != webrtc.DataChannelStateOpen {
		if state == webrtc.DataChannelStateClosed {
			util.Trace(e.name, util.OriginNetwork, "data path closed")
		}
		return
	}

	e.mu.Lock()
	if e.state.Terminal() || e.dataOpen {
		e.mu.Unlock()
		return
	}
	e.dataOpen = true
	e.advanceLocked(StateDataPathOpen)
	fn := e.onDataReady
	e.mu.Unlock()

	util.LogInfo("%s: data path open", e.name)
	if fn != nil {
		fn()
	}
}

// HandleMessage emits message-received with a private copy of payload.
func (e *Endpoint) HandleMessage(payload []byte) {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	fn := e.onMessage
	e.mu.Unlock()

	util.Stats.AddRecv(len(payload))
	if fn != nil {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		fn(msg)
	}
}

// HandleSignalingState records the engine's signaling state.
func (e *Endpoint) HandleSignalingState(state webrtc.SignalingState) {
	e.mu.Lock()
	e.signaling = state
	e.mu.Unlock()
}
