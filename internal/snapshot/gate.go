package snapshot

import (
	"math"
	"time"
)

// Default change margins for the fields the gate watches.
const (
	DefaultHeartbeat = 2 * time.Second
	MarginTemp       = 2   // °C
	MarginLoad       = 5   // %
	MarginNet        = 100 // KB/s
	MarginRAM        = 0.1 // GB, one displayed decimal
)

type watched struct {
	name   string
	value  func(Snapshot) float64
	margin float64
}

var watchedFields = []watched{
	{"ct", func(s Snapshot) float64 { return float64(s.CPUTemp) }, MarginTemp},
	{"gt", func(s Snapshot) float64 { return float64(s.GPUTemp) }, MarginTemp},
	{"cl", func(s Snapshot) float64 { return float64(s.CPULoad) }, MarginLoad},
	{"gl", func(s Snapshot) float64 { return float64(s.GPULoad) }, MarginLoad},
	{"nu", func(s Snapshot) float64 { return float64(s.NetUp) }, MarginNet},
	{"nd", func(s Snapshot) float64 { return float64(s.NetDown) }, MarginNet},
	{"ru", func(s Snapshot) float64 { return s.RAMUsed }, MarginRAM},
	{"ra", func(s Snapshot) float64 { return s.RAMTotal }, MarginRAM},
}

// Gate decides per tick whether a freshly built snapshot must be broadcast.
// The comparison baseline is the last snapshot actually sent.
type Gate struct {
	heartbeat time.Duration

	sent     bool
	lastSent Snapshot
	lastAt   time.Time
}

func NewGate(heartbeat time.Duration) *Gate {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Gate{heartbeat: heartbeat}
}

// ShouldSend reports whether s must go out at now: nothing sent yet, the
// heartbeat interval has elapsed, or a watched field moved by at least its
// margin.
func (g *Gate) ShouldSend(s Snapshot, now time.Time) bool {
	if !g.sent {
		return true
	}
	if now.Sub(g.lastAt) >= g.heartbeat {
		return true
	}
	return g.changed(s) != ""
}

// Reason names why ShouldSend would fire, for logging. Empty means it would not.
func (g *Gate) Reason(s Snapshot, now time.Time) string {
	switch {
	case !g.sent:
		return "first"
	case now.Sub(g.lastAt) >= g.heartbeat:
		return "heartbeat"
	}
	return g.changed(s)
}

func (g *Gate) changed(s Snapshot) string {
	for _, f := range watchedFields {
		// small epsilon so a one-decimal RAM step of exactly 0.1 counts
		if math.Abs(f.value(s)-f.value(g.lastSent)) >= f.margin-1e-9 {
			return f.name
		}
	}
	return ""
}

// MarkSent moves the baseline to s.
func (g *Gate) MarkSent(s Snapshot, now time.Time) {
	g.sent = true
	g.lastSent = s
	g.lastAt = now
}
