package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/ice/v4"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// validateDescription parses desc with the SDP parser before it reaches the
// engine, so a bad payload fails with a diagnostic instead of an opaque
// engine error.
func validateDescription(desc webrtc.SessionDescription, want webrtc.SDPType) error {
	kind := want.String()
	if desc.Type != want {
		return &DescriptionError{Kind: kind, Err: fmt.Errorf("type is %q", desc.Type)}
	}
	if strings.TrimSpace(desc.SDP) == "" {
		return &DescriptionError{Kind: kind, Err: errors.New("empty description")}
	}

	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(desc.SDP)); err != nil {
		return &DescriptionError{Kind: kind, Line: offendingLine(desc.SDP), Err: err}
	}
	if len(parsed.MediaDescriptions) == 0 {
		return &DescriptionError{Kind: kind, Err: errors.New("no media sections")}
	}
	return nil
}

// offendingLine returns the first line that is not of the form "x=...".
func offendingLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if len(line) < 2 || line[1] != '=' {
			return line
		}
	}
	return ""
}

// validateCandidate parses the candidate attribute value.
func validateCandidate(c webrtc.ICECandidateInit) error {
	raw := strings.TrimPrefix(c.Candidate, "candidate:")
	if raw == "" {
		return &CandidateError{Candidate: c.Candidate, Err: errors.New("empty candidate")}
	}
	if _, err := ice.UnmarshalCandidate(raw); err != nil {
		return &CandidateError{Candidate: c.Candidate, Err: err}
	}
	return nil
}
