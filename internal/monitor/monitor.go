// Package monitor runs the orchestrator loop: it schedules every data source
// on a bounded worker pool, owns the metric cache and pushes snapshots to
// connected displays.
package monitor

import (
	"context"
	"time"

	"github.com/bilal/nocturne-agent/internal/alert"
	"github.com/bilal/nocturne-agent/internal/config"
	"github.com/bilal/nocturne-agent/internal/fetcher"
	"github.com/bilal/nocturne-agent/internal/logger"
	"github.com/bilal/nocturne-agent/internal/media"
	"github.com/bilal/nocturne-agent/internal/sensor"
	"github.com/bilal/nocturne-agent/internal/snapshot"
	"github.com/bilal/nocturne-agent/internal/system"
	"github.com/bilal/nocturne-agent/internal/weather"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source names, also used as the fetch-failure metric label.
const (
	SourceHardware  = "hardware"
	SourceProcesses = "processes"
	SourceWeather   = "weather"
	SourcePing      = "ping"
	SourceMedia     = "media"
)

type HardwareSource interface {
	Fetch(ctx context.Context) sensor.Metrics
}

// RateSource reports ok=false when it has no rate to offer.
type RateSource interface {
	Sample(ctx context.Context) (system.Rate, bool)
}

type ProcessSource interface {
	Collect(ctx context.Context) (system.TopLists, error)
}

type WeatherSource interface {
	Fetch(ctx context.Context) (weather.Snapshot, bool)
}

type LatencySource interface {
	Latency(ctx context.Context) (int, error)
}

// Sources are the data collaborators polled by the Monitor. A nil source
// is never scheduled.
type Sources struct {
	Hardware  HardwareSource
	Net       RateSource
	Disk      RateSource
	Processes ProcessSource
	Weather   WeatherSource
	Ping      LatencySource
	Media     media.Provider
}

// DefaultSources wires the production collaborators from cfg.
func DefaultSources(cfg *config.Config) Sources {
	src := Sources{
		Hardware: sensor.NewSource(cfg.Sensors.URL, fetcherOptions(cfg.Sensors), sensor.NewDefaultParser(cfg.Sensors.HeuristicPrefix)),
		Net:      system.NewNetSampler(),
		Disk:     system.NewDiskSampler(),
		// three busiest by CPU, two largest by memory
		Processes: system.NewTopProcesses(3, 2),
		Media:     media.NoopProvider{},
	}
	if cfg.Weather.Enabled {
		src.Weather = weather.New(weather.URL(cfg.Weather.Latitude, cfg.Weather.Longitude), cfg.Weather.Timeout)
	}
	if cfg.Ping.Target != "" {
		src.Ping = NewPinger(cfg.Ping)
	}
	return src
}

func fetcherOptions(s config.SensorsConfig) fetcher.Options {
	return fetcher.Options{Attempts: s.Attempts, Timeout: s.Timeout}
}

// Broadcaster delivers encoded frames to clients.
type Broadcaster interface {
	Broadcast(frame []byte) int
	Publish(frame []byte)
	Count() int
}

// Recorder receives operational counters. health.Server implements it.
type Recorder interface {
	FrameSent(delivered int)
	FrameSkipped()
	FetchFailed(source string)
	SetSessions(n int)
	SetAlert(active bool)
	SetHardwareOK(ok bool)
}

// update mutates the cache with a fetch result; it runs on the loop
// goroutine only.
type update func(c *Cache, now time.Time)

type job struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) update
}

type result struct {
	name  string
	apply update
}

type Monitor struct {
	tick     time.Duration
	jobs     []job
	pool     errgroup.Group
	results  chan result
	inflight map[string]bool
	next     map[string]time.Time

	cache     Cache
	alerts    *alert.Evaluator
	lastAlert alert.State
	builder   *snapshot.Builder
	gate      *snapshot.Gate

	out Broadcaster
	rec Recorder
	now func() time.Time
	log zerolog.Logger
}

func New(cfg *config.Config, src Sources, out Broadcaster, rec Recorder) *Monitor {
	if rec == nil {
		rec = nopRecorder{}
	}
	m := &Monitor{
		tick:     cfg.Intervals.Tick,
		inflight: make(map[string]bool),
		next:     make(map[string]time.Time),
		alerts:   alert.NewEvaluator(alert.DefaultRules(cfg.Alerts)),
		builder:  snapshot.NewBuilder(),
		gate:     snapshot.NewGate(cfg.Gate.Heartbeat),
		out:      out,
		rec:      rec,
		now:      time.Now,
		log:      logger.Component("monitor"),
	}
	if m.tick <= 0 {
		m.tick = 100 * time.Millisecond
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	m.pool.SetLimit(workers)
	m.jobs = m.buildJobs(cfg.Intervals, src)
	m.results = make(chan result, len(m.jobs))
	return m
}

func (m *Monitor) buildJobs(iv config.IntervalsConfig, src Sources) []job {
	var jobs []job

	if src.Hardware != nil {
		jobs = append(jobs, job{name: SourceHardware, interval: iv.Hardware, fetch: func(ctx context.Context) update {
			hw := src.Hardware.Fetch(ctx)
			var (
				netRate, diskRate system.Rate
				netOK, diskOK     bool
			)
			if src.Net != nil {
				netRate, netOK = src.Net.Sample(ctx)
			}
			if src.Disk != nil {
				diskRate, diskOK = src.Disk.Sample(ctx)
			}
			if len(hw) == 0 {
				m.rec.FetchFailed(SourceHardware)
			}
			return func(c *Cache, now time.Time) {
				// each field keeps its last good value on failure
				if netOK {
					c.Net = netRate
				}
				if diskOK {
					c.Disk = diskRate
				}
				m.rec.SetHardwareOK(len(hw) > 0)
				if len(hw) > 0 {
					c.Hardware, c.HardwareAt = hw, now
				}
			}
		}})
	}
	if src.Processes != nil {
		jobs = append(jobs, job{name: SourceProcesses, interval: iv.Processes, fetch: func(ctx context.Context) update {
			top, err := src.Processes.Collect(ctx)
			if err != nil {
				m.rec.FetchFailed(SourceProcesses)
				m.log.Debug().Err(err).Msg("process enumeration failed")
				return nil
			}
			return func(c *Cache, now time.Time) {
				c.Top, c.TopAt = top, now
			}
		}})
	}
	if src.Weather != nil {
		jobs = append(jobs, job{name: SourceWeather, interval: iv.Weather, fetch: func(ctx context.Context) update {
			w, ok := src.Weather.Fetch(ctx)
			if !ok {
				m.rec.FetchFailed(SourceWeather)
				return nil
			}
			return func(c *Cache, now time.Time) {
				c.Weather, c.WeatherAt = w, now
			}
		}})
	}
	if src.Ping != nil {
		jobs = append(jobs, job{name: SourcePing, interval: iv.Ping, fetch: func(ctx context.Context) update {
			ms, err := src.Ping.Latency(ctx)
			if err != nil {
				m.rec.FetchFailed(SourcePing)
				return nil
			}
			return func(c *Cache, now time.Time) {
				c.Ping, c.PingAt = ms, now
			}
		}})
	}
	if src.Media != nil {
		// polled every tick
		jobs = append(jobs, job{name: SourceMedia, interval: 0, fetch: func(ctx context.Context) update {
			snap, err := src.Media.Current(ctx)
			if err != nil {
				m.rec.FetchFailed(SourceMedia)
				m.log.Debug().Err(err).Msg("media provider failed")
				return nil
			}
			return func(c *Cache, now time.Time) {
				c.Media, c.MediaAt = snap, now
			}
		}})
	}
	return jobs
}

// Run drives the loop until ctx is cancelled, then waits for in-flight
// fetches to return.
func (m *Monitor) Run(ctx context.Context) {
	m.log.Info().Dur("tick", m.tick).Int("sources", len(m.jobs)).Msg("monitor started")

	// everything is due immediately
	m.dispatch(ctx, m.now())

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("monitor stopping")
			_ = m.pool.Wait()
			return

		case r := <-m.results:
			m.apply(r)

		case <-ticker.C:
			m.step(ctx, m.now())
		}
	}
}

// dispatch hands every due, idle source to the pool. A full pool leaves the
// source due for the next tick.
func (m *Monitor) dispatch(ctx context.Context, now time.Time) {
	for _, j := range m.jobs {
		if m.inflight[j.name] || now.Before(m.next[j.name]) {
			continue
		}
		j := j
		started := m.pool.TryGo(func() error {
			apply := j.fetch(ctx)
			select {
			case m.results <- result{name: j.name, apply: apply}:
			case <-ctx.Done():
			}
			return nil
		})
		if !started {
			m.log.Debug().Str("source", j.name).Msg("worker pool full")
			continue
		}
		m.inflight[j.name] = true
		m.next[j.name] = now.Add(j.interval)
	}
}

func (m *Monitor) apply(r result) {
	delete(m.inflight, r.name)
	if r.apply != nil {
		r.apply(&m.cache, m.now())
	}
}

// step is one tick: schedule, evaluate, build, gate and push.
func (m *Monitor) step(ctx context.Context, now time.Time) {
	m.dispatch(ctx, now)

	st := m.alerts.Evaluate(m.cache.hardware())
	if st != m.lastAlert {
		if st.Active() {
			m.log.Warn().Str("metric", st.Metric).Str("target", string(st.Target)).Msg("alert raised")
		} else {
			m.log.Info().Str("metric", m.lastAlert.Metric).Msg("alert cleared")
		}
		m.lastAlert = st
		m.rec.SetAlert(st.Active())
	}

	in := m.cache.input(st)
	s := m.builder.Build(in)

	if reason := m.gate.Reason(s, now); reason != "" {
		frame, err := snapshot.Encode(s)
		if err != nil {
			m.log.Error().Err(err).Msg("encode snapshot")
			return
		}
		n := m.out.Broadcast(frame)
		m.builder.Commit(s)
		m.gate.MarkSent(s, now)
		m.rec.FrameSent(n)
		m.log.Debug().Str("reason", reason).Int("clients", n).Msg("snapshot pushed")
	} else {
		m.rec.FrameSkipped()
	}

	// new clients get the placeholder until real hardware data exists
	if m.cache.HasHardware() {
		if frame, err := snapshot.Encode(m.builder.Welcome(in)); err == nil {
			m.out.Publish(frame)
		}
	}
	m.rec.SetSessions(m.out.Count())
}

// Cache returns a copy of the cache. Only safe to call from the loop
// goroutine or after Run has returned.
func (m *Monitor) Cache() Cache {
	return m.cache
}

type nopRecorder struct{}

func (nopRecorder) FrameSent(int)      {}
func (nopRecorder) FrameSkipped()      {}
func (nopRecorder) FetchFailed(string) {}
func (nopRecorder) SetSessions(int)    {}
func (nopRecorder) SetAlert(bool)      {}
func (nopRecorder) SetHardwareOK(bool) {}
