package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcpair/internal/bridge"
)

func newTestTransport(t *testing.T, name string) *Transport {
	t.Helper()
	tr, err := New(context.Background(), Options{Name: name, Loopback: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestSendBeforeDataChannel(t *testing.T) {
	tr := newTestTransport(t, "a")
	if err := tr.Send([]byte("x")); !errors.Is(err, ErrNoDataChannel) {
		t.Fatalf("Send = %v, want ErrNoDataChannel", err)
	}
}

func TestCloseTwice(t *testing.T) {
	tr, err := New(context.Background(), Options{Name: "a"})
	if err != nil {
		t.Fatal(err)
	}
	first := tr.Close()
	if second := tr.Close(); second != first {
		t.Fatalf("second Close = %v, first = %v", second, first)
	}
	if tr.ctx.Err() == nil {
		t.Fatal("operation context still live after Close")
	}
}

// TestCreateOfferReportsThroughHandlers checks that the offer is delivered
// asynchronously and that the data channel is created first.
func TestCreateOfferReportsThroughHandlers(t *testing.T) {
	tr := newTestTransport(t, "a")

	created := make(chan webrtc.SessionDescription, 1)
	states := make(chan webrtc.DataChannelState, 4)
	tr.OnDescriptionCreated(func(desc webrtc.SessionDescription, err error) {
		if err != nil {
			t.Errorf("create failed: %v", err)
			return
		}
		created <- desc
	})
	tr.OnDataChannelStateChange(func(s webrtc.DataChannelState) { states <- s })

	tr.CreateOffer()

	select {
	case desc := <-created:
		if desc.Type != webrtc.SDPTypeOffer || desc.SDP == "" {
			t.Fatalf("unexpected description: %+v", desc)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("offer not delivered")
	}

	select {
	case s := <-states:
		if s != webrtc.DataChannelStateConnecting {
			t.Fatalf("initial channel state = %s, want connecting", s)
		}
	default:
		t.Fatal("channel state not reported")
	}

	// The channel exists, so Send now queues instead of failing.
	if err := tr.Send([]byte("queued")); err != nil {
		t.Fatalf("Send = %v", err)
	}
}

// TestOperationsRunInOrder queues set-remote with a bad description followed
// by create-answer and checks both results arrive in submission order.
func TestOperationsRunInOrder(t *testing.T) {
	tr := newTestTransport(t, "b")

	order := make(chan string, 2)
	tr.OnDescriptionSet(func(target bridge.Target, err error) {
		if err == nil {
			order <- "set-ok"
			return
		}
		order <- "set-" + target.String() + "-failed"
	})
	tr.OnDescriptionCreated(func(_ webrtc.SessionDescription, err error) {
		if err == nil {
			order <- "create-ok"
			return
		}
		order <- "create-failed"
	})

	tr.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "garbage"})
	tr.CreateAnswer()

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case s := <-order:
			got = append(got, s)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	if got[0] != "set-remote-failed" || got[1] != "create-failed" {
		t.Fatalf("results = %v", got)
	}
}

// connectPair negotiates a and b directly and waits until both data
// channels are open.
func connectPair(t *testing.T, a, b *Transport) {
	t.Helper()

	offers := make(chan webrtc.SessionDescription, 1)
	answers := make(chan webrtc.SessionDescription, 1)
	remoteSet := map[*Transport]chan struct{}{a: make(chan struct{}), b: make(chan struct{})}
	opened := map[*Transport]chan struct{}{a: make(chan struct{}), b: make(chan struct{})}
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	for _, tr := range []*Transport{a, b} {
		tr := tr
		peer := b
		if tr == b {
			peer = a
		}
		out := offers
		if tr == b {
			out = answers
		}

		tr.OnDescriptionCreated(func(desc webrtc.SessionDescription, err error) {
			if err != nil {
				t.Errorf("%s: create failed: %v", tr.name, err)
				return
			}
			tr.SetLocalDescription(desc)
			out <- desc
		})
		tr.OnDescriptionSet(func(target bridge.Target, err error) {
			if err != nil {
				t.Errorf("%s: set %s failed: %v", tr.name, target, err)
				return
			}
			if target == bridge.TargetRemote {
				close(remoteSet[tr])
			}
		})

		// Candidates wait for the peer's remote description.
		candidates := make(chan webrtc.ICECandidateInit, 32)
		tr.OnLocalCandidate(func(c webrtc.ICECandidateInit) { candidates <- c })
		go func() {
			select {
			case <-remoteSet[peer]:
			case <-done:
				return
			}
			for {
				select {
				case c := <-candidates:
					_ = peer.AddICECandidate(c)
				case <-done:
					return
				}
			}
		}()

		var once sync.Once
		tr.OnDataChannelStateChange(func(s webrtc.DataChannelState) {
			if s == webrtc.DataChannelStateOpen {
				once.Do(func() { close(opened[tr]) })
			}
		})
	}

	a.CreateOffer()
	b.SetRemoteDescription(<-offers)
	b.CreateAnswer()
	a.SetRemoteDescription(<-answers)

	for _, tr := range []*Transport{a, b} {
		select {
		case <-opened[tr]:
		case <-time.After(10 * time.Second):
			t.Fatalf("%s: data channel did not open", tr.name)
		}
	}
}

// TestCloseAfterPeerClosed closes one side of a connected pair and then the
// other; the second Close must not report the already torn down association.
func TestCloseAfterPeerClosed(t *testing.T) {
	if testing.Short() {
		t.Skip("negotiates real peer connections")
	}

	a := newTestTransport(t, "a")
	b := newTestTransport(t, "b")
	connectPair(t, a, b)

	closed := make(chan struct{})
	var once sync.Once
	b.OnDataChannelStateChange(func(s webrtc.DataChannelState) {
		if s == webrtc.DataChannelStateClosed {
			once.Do(func() { close(closed) })
		}
	})

	if err := a.Close(); err != nil {
		t.Fatalf("first Close = %v", err)
	}
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
}

func TestSenderQueueFull(t *testing.T) {
	s := &sender{inbox: make(chan []byte, 1)}
	if err := s.send([]byte("a")); err != nil {
		t.Fatalf("first send = %v", err)
	}
	if err := s.send([]byte("b")); !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("second send = %v, want ErrSendQueueFull", err)
	}
}
