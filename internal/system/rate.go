// Package system samples OS counters (network, disk, processes) through
// gopsutil.
package system

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/net"
)

// minSampleGap is the shortest interval a rate is computed over.
const minSampleGap = 100 * time.Millisecond

// Rate is a pair of KB/s figures: sent/recv for the network, read/write for
// disks.
type Rate struct {
	Out int
	In  int
}

// CounterFunc returns two monotonically increasing byte counters.
type CounterFunc func(ctx context.Context) (out, in uint64, err error)

// RateSampler turns byte counters into KB/s between successive calls. It
// is not safe for concurrent use; the orchestrator never overlaps fetches
// of the same source.
type RateSampler struct {
	counters CounterFunc
	now      func() time.Time

	primed  bool
	lastOut uint64
	lastIn  uint64
	lastAt  time.Time
}

func NewRateSampler(counters CounterFunc) *RateSampler {
	return &RateSampler{counters: counters, now: time.Now}
}

// NewNetSampler reports upload (Out) and download (In) speed.
func NewNetSampler() *RateSampler {
	return NewRateSampler(netCounters)
}

// NewDiskSampler reports read (Out) and write (In) speed summed over all disks.
func NewDiskSampler() *RateSampler {
	return NewRateSampler(diskCounters)
}

// Sample returns the rate since the previous call. ok is false when there
// is no rate to report: the first call only primes the counters, calls less
// than minSampleGap apart are ignored and counter failures are dropped.
func (s *RateSampler) Sample(ctx context.Context) (r Rate, ok bool) {
	out, in, err := s.counters(ctx)
	if err != nil {
		return Rate{}, false
	}
	now := s.now()

	if !s.primed {
		s.primed = true
		s.lastOut, s.lastIn, s.lastAt = out, in, now
		return Rate{}, false
	}

	dt := now.Sub(s.lastAt)
	if dt < minSampleGap {
		return Rate{}, false
	}

	r = Rate{
		Out: kbPerSec(s.lastOut, out, dt),
		In:  kbPerSec(s.lastIn, in, dt),
	}
	s.lastOut, s.lastIn, s.lastAt = out, in, now
	return r, true
}

func kbPerSec(prev, cur uint64, dt time.Duration) int {
	if cur < prev {
		// counter reset or wrapped
		return 0
	}
	return int(float64(cur-prev) / dt.Seconds() / 1024)
}

func netCounters(ctx context.Context) (uint64, uint64, error) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(stats) == 0 {
		return 0, 0, fmt.Errorf("no network counters")
	}
	return stats[0].BytesSent, stats[0].BytesRecv, nil
}

func diskCounters(ctx context.Context) (uint64, uint64, error) {
	stats, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	var read, write uint64
	for _, s := range stats {
		read += s.ReadBytes
		write += s.WriteBytes
	}
	return read, write, nil
}
