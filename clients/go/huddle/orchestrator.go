package huddle

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/core"
)

// Signaler is the orchestrator's outbound side, implemented by the signaling
// client and by test recorders.
type Signaler interface {
	SendOffer(target core.ConnID, sdp string) error
	SendAnswer(target core.ConnID, sdp string) error
	SendCandidate(target core.ConnID, cand webrtc.ICECandidateInit) error
}

// peer is the per-remote state: the negotiation link plus cached metadata.
type peer struct {
	link         PeerLink
	offered      bool
	restarted    bool
	videoEnabled bool
	displayName  string
}

// PeerOrchestrator turns relay events into a mesh of peer links: one link
// per remote member, one offer per member per negotiation attempt. Offers
// for members discovered before local media settles are queued and drained
// when it does.
type PeerOrchestrator struct {
	mu sync.Mutex

	signaler Signaler
	newLink  LinkFactory

	peers      map[core.ConnID]*peer
	pending    []core.ConnID
	pendingSet map[core.ConnID]bool
	mediaReady bool

	// flushDelay schedules the second, race-mitigation flush after media
	// becomes ready.
	flushDelay time.Duration

	// onWarning surfaces a connectivity warning for a peer whose single ICE
	// restart did not help.
	onWarning func(core.ConnID)
}

func NewPeerOrchestrator(signaler Signaler, newLink LinkFactory, onWarning func(core.ConnID)) *PeerOrchestrator {
	return &PeerOrchestrator{
		signaler:   signaler,
		newLink:    newLink,
		peers:      make(map[core.ConnID]*peer),
		pendingSet: make(map[core.ConnID]bool),
		flushDelay: 2 * time.Second,
		onWarning:  onWarning,
	}
}

// HandleExistingMembers processes the join reply: the local side initiates
// an offer toward every member already in the room. Members seen before
// media settles are queued, not dropped.
func (o *PeerOrchestrator) HandleExistingMembers(members []core.MemberDTO) {
	for _, m := range members {
		o.mu.Lock()
		if !o.mediaReady {
			if !o.pendingSet[m.ConnID] {
				o.pendingSet[m.ConnID] = true
				o.pending = append(o.pending, m.ConnID)
			}
			if p, ok := o.peers[m.ConnID]; ok && m.DisplayName != "" {
				p.displayName = m.DisplayName
			}
			o.mu.Unlock()
			continue
		}
		o.mu.Unlock()
		o.offerTo(m.ConnID)
	}
}

// MediaReady drains the pending queue and arms the delayed safety-net flush.
// Media acquisition and the signaling join race; whichever finishes last
// must converge to the same mesh.
func (o *PeerOrchestrator) MediaReady() {
	o.mu.Lock()
	o.mediaReady = true
	o.mu.Unlock()

	o.flushPending()
	time.AfterFunc(o.flushDelay, o.flushPending)
}

func (o *PeerOrchestrator) flushPending() {
	o.mu.Lock()
	queued := o.pending
	o.pending = nil
	o.pendingSet = make(map[core.ConnID]bool)
	o.mu.Unlock()

	for _, id := range queued {
		o.offerTo(id)
	}
}

// offerTo creates the link and sends one offer. A peer that already got an
// offer this negotiation attempt is skipped.
func (o *PeerOrchestrator) offerTo(remote core.ConnID) {
	o.mu.Lock()
	p, ok := o.peers[remote]
	if ok && p.offered {
		o.mu.Unlock()
		return
	}
	if !ok {
		link, err := o.buildLink(remote)
		if err != nil {
			o.mu.Unlock()
			log.Error().Err(err).Str("module", "client.orch").Str("remote", string(remote)).Msg("new link")
			return
		}
		p = &peer{link: link}
		o.peers[remote] = p
	}
	p.offered = true
	link := p.link
	o.mu.Unlock()

	sdp, err := link.CreateOffer(context.Background(), false)
	if err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(remote)).Msg("create offer")
		o.dropPeer(remote)
		return
	}
	if err := o.signaler.SendOffer(remote, sdp); err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(remote)).Msg("send offer")
	}
}

// buildLink must be called with o.mu held.
func (o *PeerOrchestrator) buildLink(remote core.ConnID) (PeerLink, error) {
	link, err := o.newLink(remote)
	if err != nil {
		return nil, err
	}
	link.OnCandidate(func(c webrtc.ICECandidateInit) {
		if err := o.signaler.SendCandidate(remote, c); err != nil {
			log.Warn().Err(err).Str("module", "client.orch").Str("remote", string(remote)).Msg("send candidate")
		}
	})
	link.OnFailure(func() { o.onLinkFailure(remote) })
	return link, nil
}

// HandleOffer answers a remote-initiated negotiation, creating the link on
// first contact.
func (o *PeerOrchestrator) HandleOffer(sender core.ConnID, sdp string) {
	o.mu.Lock()
	p, ok := o.peers[sender]
	if !ok {
		link, err := o.buildLink(sender)
		if err != nil {
			o.mu.Unlock()
			log.Error().Err(err).Str("module", "client.orch").Str("remote", string(sender)).Msg("new link for offer")
			return
		}
		p = &peer{link: link}
		o.peers[sender] = p
	}
	link := p.link
	o.mu.Unlock()

	answer, err := link.AcceptOffer(context.Background(), sdp)
	if err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(sender)).Msg("accept offer")
		o.dropPeer(sender)
		return
	}
	if err := o.signaler.SendAnswer(sender, answer); err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(sender)).Msg("send answer")
	}
}

// HandleAnswer applies a remote answer to our outstanding offer. Answers
// from unknown peers are dropped.
func (o *PeerOrchestrator) HandleAnswer(sender core.ConnID, sdp string) {
	o.mu.Lock()
	p, ok := o.peers[sender]
	o.mu.Unlock()
	if !ok {
		log.Warn().Str("module", "client.orch").Str("remote", string(sender)).Msg("answer from unknown peer dropped")
		return
	}
	if err := p.link.AcceptAnswer(sdp); err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(sender)).Msg("accept answer")
	}
}

// HandleCandidate applies a trickled candidate; candidates for unknown
// peers are dropped.
func (o *PeerOrchestrator) HandleCandidate(sender core.ConnID, cand webrtc.ICECandidateInit) {
	o.mu.Lock()
	p, ok := o.peers[sender]
	o.mu.Unlock()
	if !ok {
		return
	}
	if err := p.link.AddCandidate(cand); err != nil {
		log.Warn().Err(err).Str("module", "client.orch").Str("remote", string(sender)).Msg("add candidate")
	}
}

// HandleMemberLeft tears down the link and discards all cached metadata for
// the departed member.
func (o *PeerOrchestrator) HandleMemberLeft(remote core.ConnID) {
	o.dropPeer(remote)
}

// HandleVideoState caches the remote's camera toggle.
func (o *PeerOrchestrator) HandleVideoState(remote core.ConnID, enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.peers[remote]; ok {
		p.videoEnabled = enabled
	}
}

// VideoEnabled reports the cached camera state for a remote.
func (o *PeerOrchestrator) VideoEnabled(remote core.ConnID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.peers[remote]; ok {
		return p.videoEnabled
	}
	return false
}

// ReplaceVideoTrack swaps the outgoing video track on every live link in
// place. Screen-share start/stop goes through here so no offer/answer
// handshake is re-run for a stream swap.
func (o *PeerOrchestrator) ReplaceVideoTrack(track webrtc.TrackLocal) {
	o.mu.Lock()
	links := make([]PeerLink, 0, len(o.peers))
	for _, p := range o.peers {
		links = append(links, p.link)
	}
	o.mu.Unlock()

	for _, link := range links {
		if err := link.ReplaceVideoTrack(track); err != nil {
			log.Warn().Err(err).Str("module", "client.orch").Msg("replace video track")
		}
	}
}

// onLinkFailure attempts one ICE restart per peer; after that the failure is
// surfaced as a warning, not retried.
func (o *PeerOrchestrator) onLinkFailure(remote core.ConnID) {
	o.mu.Lock()
	p, ok := o.peers[remote]
	if !ok {
		o.mu.Unlock()
		return
	}
	if p.restarted {
		o.mu.Unlock()
		log.Warn().Str("module", "client.orch").Str("remote", string(remote)).Msg("link failed after restart")
		if o.onWarning != nil {
			o.onWarning(remote)
		}
		return
	}
	p.restarted = true
	link := p.link
	o.mu.Unlock()

	log.Info().Str("module", "client.orch").Str("remote", string(remote)).Msg("attempting ICE restart")
	sdp, err := link.CreateOffer(context.Background(), true)
	if err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(remote)).Msg("restart offer")
		return
	}
	if err := o.signaler.SendOffer(remote, sdp); err != nil {
		log.Error().Err(err).Str("module", "client.orch").Str("remote", string(remote)).Msg("send restart offer")
	}
}

func (o *PeerOrchestrator) dropPeer(remote core.ConnID) {
	o.mu.Lock()
	p, ok := o.peers[remote]
	if ok {
		delete(o.peers, remote)
	}
	o.mu.Unlock()
	if ok {
		p.link.Close()
		log.Info().Str("module", "client.orch").Str("remote", string(remote)).Msg("peer dropped")
	}
}

// Close tears down every link. Called synchronously before the signaling
// socket is closed so no connection outlives the session.
func (o *PeerOrchestrator) Close() {
	o.mu.Lock()
	peers := o.peers
	o.peers = make(map[core.ConnID]*peer)
	o.pending = nil
	o.pendingSet = make(map[core.ConnID]bool)
	o.mu.Unlock()

	for _, p := range peers {
		p.link.Close()
	}
}

// PeerCount reports live links, for the UI.
func (o *PeerOrchestrator) PeerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.peers)
}

// PendingCount reports queued offer targets, for tests and the UI.
func (o *PeerOrchestrator) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
