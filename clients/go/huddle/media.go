package huddle

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// MediaSource abstracts local media acquisition, the asynchronous
// permission-gated step that races the signaling join. Acquire may fail
// (camera/microphone denied); the session then proceeds without local media.
type MediaSource interface {
	Acquire(ctx context.Context) (audio, video webrtc.TrackLocal, err error)
	// StopAll synchronously releases all captured tracks. Must be safe to
	// call regardless of whether Acquire succeeded.
	StopAll()
}

// NopMedia is a media source with nothing to capture (headless clients,
// tests).
type NopMedia struct{}

func (NopMedia) Acquire(context.Context) (webrtc.TrackLocal, webrtc.TrackLocal, error) {
	return nil, nil, nil
}

func (NopMedia) StopAll() {}
