// Package media describes the now-playing state reported by the host's
// media-session provider.
package media

import (
	"context"
	"sync"
)

const maxFieldLen = 30

// Snapshot is one reading of the media session.
type Snapshot struct {
	Artist  string
	Track   string
	Playing bool
	Idle    bool
	// Cover is the base64 1-bit bitmap of the album art, empty if unknown.
	Cover string
}

// New builds a Snapshot, truncating text fields and deriving Idle.
func New(artist, track string, playing bool, cover string) Snapshot {
	artist = truncate(artist)
	track = truncate(track)
	return Snapshot{
		Artist:  artist,
		Track:   track,
		Playing: playing,
		Idle:    (artist != "" || track != "") && !playing,
		Cover:   cover,
	}
}

// TrackKey identifies the current track for cover de-duplication.
func (s Snapshot) TrackKey() string {
	return s.Artist + "|" + s.Track
}

func (s Snapshot) Status() string {
	if s.Playing {
		return "PLAYING"
	}
	return "PAUSED"
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxFieldLen {
		return string(r[:maxFieldLen])
	}
	return s
}

// Provider is the platform media-session API. Implementations that have
// album art pass it through EncodeCover and hand the result to New.
type Provider interface {
	Current(ctx context.Context) (Snapshot, error)
}

// NoopProvider reports that nothing is playing. It is used on hosts
// without a supported media-session API.
type NoopProvider struct{}

func (NoopProvider) Current(context.Context) (Snapshot, error) {
	return Snapshot{}, nil
}

// StaticProvider returns whatever was last Set. It lets an external bridge
// push now-playing state into the agent.
type StaticProvider struct {
	mu   sync.RWMutex
	snap Snapshot
}

func (p *StaticProvider) Set(s Snapshot) {
	p.mu.Lock()
	p.snap = s
	p.mu.Unlock()
}

func (p *StaticProvider) Current(context.Context) (Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap, nil
}
