package endpoint

// State is the lifecycle position of an Endpoint. States only move forward;
// Closed and Failed are terminal.
type State int

const (
	StateIdle State = iota
	StateFactoryReady
	StateOffering
	StateAnswering
	StateLocalDescriptionSet
	StateRemoteDescriptionPending
	StateRemoteDescriptionSet
	StateCandidateExchange
	StateDataPathOpen
	StateClosed
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                     "Idle",
	StateFactoryReady:             "FactoryReady",
	StateOffering:                 "Offering",
	StateAnswering:                "Answering",
	StateLocalDescriptionSet:      "LocalDescriptionSet",
	StateRemoteDescriptionPending: "RemoteDescriptionPending",
	StateRemoteDescriptionSet:     "RemoteDescriptionSet",
	StateCandidateExchange:        "CandidateExchange",
	StateDataPathOpen:             "DataPathOpen",
	StateClosed:                   "Closed",
	StateFailed:                   "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}
