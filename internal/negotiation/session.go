package negotiation

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/syncq"
)

// side is the shared record for one endpoint. Every field is read and written
// only inside the session queue's lock.
type side struct {
	peer    Peer
	payload []byte

	desc           *webrtc.SessionDescription
	pending        []webrtc.ICECandidateInit // gathered, not yet delivered
	remoteAccepted bool
	dataReady      bool
	received       [][]byte

	gathered  int
	delivered int
}

func (s *side) hasDescription() bool {
	return s.desc != nil && s.desc.SDP != ""
}

// pop removes the oldest pending candidate.
func (s *side) pop() (webrtc.ICECandidateInit, bool) {
	if len(s.pending) == 0 {
		return webrtc.ICECandidateInit{}, false
	}
	c := s.pending[0]
	s.pending = s.pending[1:]
	return c, true
}

// session holds both sides of one negotiation behind one queue.
type session struct {
	q    *syncq.Queue
	a, b *side
}

func newSession(a, b Participant) *session {
	return &session{
		q: syncq.New(),
		a: &side{peer: a.Peer, payload: a.Payload},
		b: &side{peer: b.Peer, payload: b.Payload},
	}
}

// subscribe routes every endpoint event of s into the session.
func (ss *session) subscribe(s *side) {
	name := s.peer.Name()
	p := s.peer

	p.OnSDPReady(func(desc webrtc.SessionDescription) {
		ss.q.Update(func() { s.desc = &desc })
	})
	p.OnICECandidate(func(c webrtc.ICECandidateInit) {
		ss.q.Update(func() {
			s.pending = append(s.pending, c)
			s.gathered++
		})
	})
	p.OnRemoteAccepted(func() {
		ss.q.Update(func() { s.remoteAccepted = true })
	})
	p.OnDataReady(func() {
		ss.q.Update(func() { s.dataReady = true })
	})
	p.OnMessage(func(payload []byte) {
		ss.q.Update(func() { s.received = append(s.received, payload) })
	})
	p.OnFailure(func(err error) {
		ss.q.Fail(&PeerError{Peer: name, Err: err})
	})
}
