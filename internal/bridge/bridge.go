// Package bridge adapts a connectivity engine's push-style notifications into
// calls on an endpoint state machine.
//
// The bridge holds no state and makes no decisions. Every notification is
// forwarded synchronously, on whatever goroutine the engine delivers it, to
// exactly one Sink method. Results that carry an error are split into a
// success call and a failure call.
package bridge

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/util"
)

// Target names which description a set-description result refers to.
type Target int

const (
	TargetLocal Target = iota
	TargetRemote
)

func (t Target) String() string {
	if t == TargetRemote {
		return "remote"
	}
	return "local"
}

// Source is the notification surface of a connectivity engine. Each setter
// replaces any previously registered handler.
type Source interface {
	OnSignalingStateChange(fn func(webrtc.SignalingState))
	OnLocalCandidate(fn func(webrtc.ICECandidateInit))
	OnDataChannel(fn func(label string))
	OnDataChannelStateChange(fn func(webrtc.DataChannelState))
	OnMessage(fn func([]byte))
	OnDescriptionSet(fn func(target Target, err error))
	OnDescriptionCreated(fn func(desc webrtc.SessionDescription, err error))
}

// Sink is the inbound surface of an endpoint state machine.
type Sink interface {
	Name() string
	HandleSignalingState(state webrtc.SignalingState)
	HandleLocalCandidate(c webrtc.ICECandidateInit)
	HandleDataChannel(label string)
	HandleDataPathState(state webrtc.DataChannelState)
	HandleMessage(payload []byte)
	HandleDescriptionSet(target Target)
	HandleDescriptionSetFailure(target Target, err error)
	HandleDescriptionCreated(desc webrtc.SessionDescription)
	HandleDescriptionCreateFailure(err error)
}

// Bind registers forwarding handlers on src that deliver into sink.
func Bind(src Source, sink Sink) {
	name := sink.Name()

	src.OnSignalingStateChange(func(state webrtc.SignalingState) {
		util.Trace(name, util.OriginSignaling, "SignalingChange(%s)", state)
		sink.HandleSignalingState(state)
	})

	src.OnLocalCandidate(func(c webrtc.ICECandidateInit) {
		util.Trace(name, util.OriginNetwork, "IceCandidate")
		sink.HandleLocalCandidate(c)
	})

	src.OnDataChannel(func(label string) {
		util.Trace(name, util.OriginNetwork, "DataChannel(%s)", label)
		sink.HandleDataChannel(label)
	})

	src.OnDataChannelStateChange(func(state webrtc.DataChannelState) {
		util.Trace(name, util.OriginNetwork, "StateChange(%s)", state)
		sink.HandleDataPathState(state)
	})

	src.OnMessage(func(payload []byte) {
		util.Trace(name, util.OriginNetwork, "Message(%d bytes)", len(payload))
		sink.HandleMessage(payload)
	})

	src.OnDescriptionSet(func(target Target, err error) {
		if err != nil {
			util.Trace(name, util.OriginSignaling, "SetSessionDescription(%s)::OnFailure: %v", target, err)
			sink.HandleDescriptionSetFailure(target, err)
			return
		}
		util.Trace(name, util.OriginSignaling, "SetSessionDescription(%s)::OnSuccess", target)
		sink.HandleDescriptionSet(target)
	})

	src.OnDescriptionCreated(func(desc webrtc.SessionDescription, err error) {
		if err != nil {
			util.Trace(name, util.OriginSignaling, "CreateSessionDescription::OnFailure: %v", err)
			sink.HandleDescriptionCreateFailure(err)
			return
		}
		util.Trace(name, util.OriginSignaling, "CreateSessionDescription(%s)::OnSuccess", desc.Type)
		sink.HandleDescriptionCreated(desc)
	})
}
