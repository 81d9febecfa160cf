// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

// Phase is a connection sub-state of the game protocol.
//
// Replay containers begin recording after the handshake, so scans of a
// recording stream start in PhaseLogin. Handshaking and Status exist for
// completeness; no recognized transition produces them.
type Phase int

// Phase values, in protocol order.
const (
	PhaseHandshaking Phase = iota
	PhaseStatus
	PhaseLogin
	PhaseConfiguration
	PhasePlay
)

// String returns a human-readable name for p.
func (p Phase) String() string {
	switch p {
	case PhaseHandshaking:
		return "Handshaking"
	case PhaseStatus:
		return "Status"
	case PhaseLogin:
		return "Login"
	case PhaseConfiguration:
		return "Configuration"
	case PhasePlay:
		return "Play"
	default:
		return "Unknown"
	}
}

// Transition-trigger identifiers.
//
// These are clientbound ids: Login Success acknowledges the login phase and
// Finish Configuration hands off to play. They are the only two identifiers
// the tracker ever inspects; PhasePlay is terminal.
const (
	idLoginSuccess        = 0x02
	idFinishConfiguration = 0x03
)

// PhaseTracker infers the connection phase from the sequence of packet
// identifiers observed while scanning a stream.
//
// The tracker never regresses: Login advances to Configuration advances to
// Play, driven solely by transition identifiers. Packet bodies are never
// consulted.
type PhaseTracker struct {
	phase Phase
}

// NewPhaseTracker returns a tracker starting in the given phase.
func NewPhaseTracker(initial Phase) *PhaseTracker {
	return &PhaseTracker{phase: initial}
}

// Phase returns the tracker's current phase.
func (t *PhaseTracker) Phase() Phase { return t.phase }

// Observe records the identifier of the next packet in the stream and
// returns the phase that packet was read in.
//
// Transitions take effect after the triggering packet: the trigger itself is
// tagged with the phase it arrived in, and only subsequent packets see the
// new state.
func (t *PhaseTracker) Observe(id int32) Phase {
	current := t.phase
	switch {
	case current == PhaseLogin && id == idLoginSuccess:
		t.phase = PhaseConfiguration
	case current == PhaseConfiguration && id == idFinishConfiguration:
		t.phase = PhasePlay
	}
	return current
}
