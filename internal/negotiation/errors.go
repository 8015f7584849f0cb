package negotiation

import "fmt"

// PeerError attributes an endpoint failure to the endpoint that raised it.
type PeerError struct {
	Peer string
	Err  error
}

func (e *PeerError) Error() string { return fmt.Sprintf("%s: %v", e.Peer, e.Err) }

func (e *PeerError) Unwrap() error { return e.Err }

// VerificationError reports a received payload that differs from the payload
// the other endpoint was told to send.
type VerificationError struct {
	Peer string
	Want string
	Got  string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s received %q, want %q", e.Peer, e.Got, e.Want)
}
