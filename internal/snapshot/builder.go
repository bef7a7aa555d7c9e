package snapshot

import (
	"math"

	"github.com/bilal/nocturne-agent/internal/alert"
	"github.com/bilal/nocturne-agent/internal/media"
	"github.com/bilal/nocturne-agent/internal/sensor"
	"github.com/bilal/nocturne-agent/internal/system"
	"github.com/bilal/nocturne-agent/internal/weather"
)

const maxDescLen = 20

// Input is everything a snapshot is built from.
type Input struct {
	Hardware sensor.Metrics
	Weather  weather.Snapshot
	Media    media.Snapshot
	TopCPU   []system.CPUProc
	TopRAM   []system.RAMProc
	Net      system.Rate // Out = upload, In = download
	Disk     system.Rate // Out = read, In = write
	Ping     int
	Alert    alert.State
}

// Builder turns cache contents into snapshots. It remembers the last good
// weather and the track whose cover was last sent. Not safe for concurrent
// use.
type Builder struct {
	lastWeather  weather.Snapshot
	haveWeather  bool
	sentTrackKey string
	sentAny      bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces the broadcast snapshot for in. The cover is included only
// when the track differs from the last committed snapshot's track.
func (b *Builder) Build(in Input) Snapshot {
	s := b.build(in)
	if !b.sentAny || s.trackKey != b.sentTrackKey {
		cover := in.Media.Cover
		s.Cover = &cover
	}
	return s
}

// Welcome produces the snapshot for a newly connected client, which always
// carries the current cover.
func (b *Builder) Welcome(in Input) Snapshot {
	s := b.build(in)
	cover := in.Media.Cover
	s.Cover = &cover
	return s
}

// Commit records s as sent. Only snapshots that were actually broadcast
// should be committed.
func (b *Builder) Commit(s Snapshot) {
	b.sentTrackKey = s.trackKey
	b.sentAny = true
}

func (b *Builder) build(in Input) Snapshot {
	hw := in.Hardware
	w := b.weather(in.Weather)

	s := Snapshot{
		CPUTemp:   toInt(hw.Get(sensor.CPUTemp)),
		GPUTemp:   toInt(hw.Get(sensor.GPUTemp)),
		CPULoad:   toInt(hw.Get(sensor.CPULoad)),
		GPULoad:   toInt(hw.Get(sensor.GPULoad)),
		CPUPower:  toInt(hw.Get(sensor.CPUPower)),
		CPUClock:  toInt(hw.Get(sensor.CPUClock)),
		GPUHot:    toInt(hw.Get(sensor.GPUHotspot)),
		VRAMLoad:  toInt(hw.Get(sensor.VRAMLoad)),
		GPUClock:  toInt(hw.Get(sensor.GPUClock)),
		VRAMClock: toInt(hw.Get(sensor.VRAMClock)),
		GPUPower:  toInt(hw.Get(sensor.GPUPower)),
		RAMUsed:   round1(hw.Get(sensor.RAMUsed)),
		RAMTotal:  round1(hw.Get(sensor.RAMTotal)),
		VRAMUsed:  round1(hw.Get(sensor.VRAMUsed)),
		VRAMTotal: round1(hw.Get(sensor.VRAMTotal)),

		NetUp:   in.Net.Out,
		NetDown: in.Net.In,
		Ping:    in.Ping,

		CaseFan:     toInt(hw.Get(sensor.CaseFan)),
		SystemFan1:  toInt(hw.Get(sensor.SystemFan1)),
		SystemFan2:  toInt(hw.Get(sensor.SystemFan2)),
		GPUFan:      toInt(hw.Get(sensor.GPUFan)),
		SystemDisk:  toInt(hw.Get(sensor.SystemDisk)),
		DataDisk:    toInt(hw.Get(sensor.DataDisk)),
		ChipsetTemp: toInt(hw.Get(sensor.ChipsetTemp)),
		DiskRead:    in.Disk.Out,
		DiskWrite:   in.Disk.In,

		WeatherTemp:     w.Temp,
		WeatherDesc:     truncate(w.Desc, maxDescLen),
		WeatherCode:     w.Code,
		WeatherDayHigh:  w.DayHigh,
		WeatherDayLow:   w.DayLow,
		WeatherDayCode:  w.DayCode,
		WeatherWeekHigh: nonNil(w.WeekHigh),
		WeatherWeekLow:  nonNil(w.WeekLow),
		WeatherWeekCode: nonNil(w.WeekCode),

		TopCPU: in.TopCPU,
		TopRAM: in.TopRAM,

		Artist:      in.Media.Artist,
		Track:       in.Media.Track,
		Playing:     in.Media.Playing,
		Idle:        in.Media.Idle,
		MediaStatus: in.Media.Status(),

		trackKey: in.Media.TrackKey(),
	}
	if s.TopCPU == nil {
		s.TopCPU = []system.CPUProc{}
	}
	if s.TopRAM == nil {
		s.TopRAM = []system.RAMProc{}
	}

	if in.Alert.Active() {
		s.Alert = "CRITICAL"
		s.TargetScreen = string(in.Alert.Target)
		s.AlertMetric = in.Alert.Metric
	}
	return s
}

// weather returns w, or the last good snapshot when w is empty and a good
// one has been seen.
func (b *Builder) weather(w weather.Snapshot) weather.Snapshot {
	if !w.Empty() {
		b.lastWeather = w
		b.haveWeather = true
		return w
	}
	if b.haveWeather {
		return b.lastWeather
	}
	return w
}

func toInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func round1(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*10) / 10
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}
