package huddle

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/avoronin/Huddle/internal/core"
)

// PeerLink is one negotiation object toward a single remote connection. The
// pion implementation lives in client/rtc; tests plug in fakes.
type PeerLink interface {
	// CreateOffer produces a local offer SDP. iceRestart re-gathers
	// candidates on an existing session after a connectivity failure.
	CreateOffer(ctx context.Context, iceRestart bool) (string, error)
	// AcceptOffer applies a remote offer and produces the answer SDP.
	AcceptOffer(ctx context.Context, sdp string) (string, error)
	// AcceptAnswer applies a remote answer to a previously sent offer.
	AcceptAnswer(sdp string) error
	// AddCandidate applies a trickled remote ICE candidate.
	AddCandidate(webrtc.ICECandidateInit) error
	// ReplaceVideoTrack swaps the outgoing video track in place, without
	// renegotiating. Used for the screen-share toggle.
	ReplaceVideoTrack(track webrtc.TrackLocal) error
	// OnCandidate registers the local trickle callback.
	OnCandidate(func(webrtc.ICECandidateInit))
	// OnFailure fires on terminal connectivity failure of this link.
	OnFailure(func())
	Close()
}

// LinkFactory builds a PeerLink for the given remote connection.
type LinkFactory func(remote core.ConnID) (PeerLink, error)
