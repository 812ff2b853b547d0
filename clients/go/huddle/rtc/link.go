// Package rtc is the pion-backed implementation of the client peer link.
package rtc

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
)

var ErrNoVideoSender = errors.New("rtc: no video sender on link")

// Link wraps one pion PeerConnection toward a single remote member.
type Link struct {
	pc     *webrtc.PeerConnection
	remote core.ConnID

	onICE    func(webrtc.ICECandidateInit)
	onTrack  func(*webrtc.TrackRemote)
	onClosed func()
}

func DefaultConfig(stunServers []string) webrtc.Configuration {
	if len(stunServers) == 0 {
		stunServers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: stunServers}},
	}
}

func NewLink(cfg webrtc.Configuration, remote core.ConnID, localTracks ...webrtc.TrackLocal) (*Link, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	l := &Link{pc: pc, remote: remote}

	for _, t := range localTracks {
		if t == nil {
			continue
		}
		if _, err := pc.AddTrack(t); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && l.onICE != nil {
			l.onICE(cand.ToJSON())
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "client.rtc").Str("remote", string(remote)).
			Str("peer_connection_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed {
			if l.onClosed != nil {
				l.onClosed()
			}
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().Str("module", "client.rtc").Str("remote", string(remote)).
			Str("kind", track.Kind().String()).Msg("remote track")
		if l.onTrack != nil {
			l.onTrack(track)
		}
	})

	return l, nil
}

func (l *Link) CreateOffer(ctx context.Context, iceRestart bool) (string, error) {
	var opts *webrtc.OfferOptions
	if iceRestart {
		opts = &webrtc.OfferOptions{ICERestart: true}
	}
	offer, err := l.pc.CreateOffer(opts)
	if err != nil {
		return "", err
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	return offer.SDP, nil
}

func (l *Link) AcceptOffer(ctx context.Context, sdp string) (string, error) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := l.pc.SetRemoteDescription(offer); err != nil {
		return "", err
	}
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (l *Link) AcceptAnswer(sdp string) error {
	return l.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	})
}

func (l *Link) AddCandidate(ci webrtc.ICECandidateInit) error {
	return l.pc.AddICECandidate(ci)
}

// ReplaceVideoTrack swaps the outgoing video track on the existing sender,
// avoiding a renegotiation for the stream swap.
func (l *Link) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	for _, sender := range l.pc.GetSenders() {
		t := sender.Track()
		if t != nil && t.Kind() == webrtc.RTPCodecTypeVideo {
			return sender.ReplaceTrack(track)
		}
	}
	return ErrNoVideoSender
}

func (l *Link) OnCandidate(fn func(webrtc.ICECandidateInit)) { l.onICE = fn }
func (l *Link) OnFailure(fn func())                          { l.onClosed = fn }

// OnTrack sets the callback for incoming remote media.
func (l *Link) OnTrack(fn func(*webrtc.TrackRemote)) { l.onTrack = fn }

func (l *Link) Close() {
	if err := l.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "client.rtc").Str("remote", string(l.remote)).Msg("close error")
	}
}
