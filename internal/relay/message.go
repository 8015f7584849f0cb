package relay

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// MessageType identifies the kind of signaling message.
type MessageType string

const (
	MsgTypeOffer     MessageType = "offer"
	MsgTypeAnswer    MessageType = "answer"
	MsgTypeCandidate MessageType = "candidate"
)

// Message is the JSON structure carried between the two endpoints.
type Message struct {
	Type      MessageType `json:"type"`
	From      string      `json:"from"`
	SDP       string      `json:"sdp,omitempty"`
	Candidate string      `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}

// DescriptionMessage wraps an offer or answer.
func DescriptionMessage(from string, desc webrtc.SessionDescription) Message {
	typ := MsgTypeOffer
	if desc.Type == webrtc.SDPTypeAnswer {
		typ = MsgTypeAnswer
	}
	return Message{Type: typ, From: from, SDP: desc.SDP}
}

// CandidateMessage wraps a connectivity candidate.
func CandidateMessage(from string, c webrtc.ICECandidateInit) (Message, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return Message{}, fmt.Errorf("encoding candidate: %w", err)
	}
	return Message{Type: MsgTypeCandidate, From: from, Candidate: string(data)}, nil
}

// Description unwraps an offer or answer message.
func (m Message) Description() (webrtc.SessionDescription, error) {
	switch m.Type {
	case MsgTypeOffer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: m.SDP}, nil
	case MsgTypeAnswer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: m.SDP}, nil
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("message type %q is not a description", m.Type)
	}
}

// ICECandidate unwraps a candidate message.
func (m Message) ICECandidate() (webrtc.ICECandidateInit, error) {
	var c webrtc.ICECandidateInit
	if m.Type != MsgTypeCandidate {
		return c, fmt.Errorf("message type %q is not a candidate", m.Type)
	}
	if err := json.Unmarshal([]byte(m.Candidate), &c); err != nil {
		return c, fmt.Errorf("decoding candidate: %w", err)
	}
	return c, nil
}
