package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounters struct {
	out, in uint64
	err     error
}

func (f *fakeCounters) read(context.Context) (uint64, uint64, error) {
	return f.out, f.in, f.err
}

func TestRateSampler(t *testing.T) {
	fc := &fakeCounters{out: 1000, in: 5000}
	clock := time.Unix(1000, 0)

	s := NewRateSampler(fc.read)
	s.now = func() time.Time { return clock }

	_, ok := s.Sample(context.Background())
	assert.False(t, ok, "first sample only primes")

	clock = clock.Add(2 * time.Second)
	fc.out += 2 * 1024 * 10
	fc.in += 2 * 1024 * 300

	r, ok := s.Sample(context.Background())
	assert.True(t, ok)
	assert.Equal(t, Rate{Out: 10, In: 300}, r)

	clock = clock.Add(50 * time.Millisecond)
	fc.out += 1 << 20
	_, ok = s.Sample(context.Background())
	assert.False(t, ok, "too close to previous sample")
}

func TestRateSamplerCounterReset(t *testing.T) {
	fc := &fakeCounters{out: 1 << 30, in: 1 << 30}
	clock := time.Unix(0, 0)

	s := NewRateSampler(fc.read)
	s.now = func() time.Time { return clock }
	s.Sample(context.Background())

	clock = clock.Add(time.Second)
	fc.out, fc.in = 0, 0

	r, ok := s.Sample(context.Background())
	assert.True(t, ok)
	assert.Equal(t, Rate{}, r)
}

func TestRateSamplerError(t *testing.T) {
	fc := &fakeCounters{err: errors.New("unsupported")}

	s := NewRateSampler(fc.read)

	_, ok := s.Sample(context.Background())
	assert.False(t, ok)
	assert.False(t, s.primed)
}

func TestTopProcesses(t *testing.T) {
	procs := []ProcInfo{
		{Name: "idle", CPUPercent: 0, RSSBytes: 1 << 20},
		{Name: "game-with-a-very-long-executable-name.exe", CPUPercent: 55.9, RSSBytes: 4 << 30},
		{Name: "browser", CPUPercent: 12, RSSBytes: 1 << 30},
		{Name: "MemCompression", CPUPercent: 1, RSSBytes: 8 << 30},
		{Name: "editor", CPUPercent: 30, RSSBytes: 5 << 20},
		{Name: "shell", CPUPercent: 3, RSSBytes: 20 << 20},
	}
	top := NewTopProcessesWithLister(func(context.Context) ([]ProcInfo, error) { return procs, nil }, 3, 2)

	lists, err := top.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []CPUProc{
		{Name: "game-with-a-very-lon", Percent: 55},
		{Name: "editor", Percent: 30},
		{Name: "browser", Percent: 12},
	}, lists.CPU)
	assert.Equal(t, []RAMProc{
		{Name: "game-with-a-very-lon", MB: 4096},
		{Name: "browser", MB: 1024},
	}, lists.RAM)
}

func TestTopProcessesFailure(t *testing.T) {
	top := NewTopProcessesWithLister(func(context.Context) ([]ProcInfo, error) {
		return nil, errors.New("denied")
	}, 3, 2)

	_, err := top.Collect(context.Background())

	assert.ErrorContains(t, err, "denied")
}
