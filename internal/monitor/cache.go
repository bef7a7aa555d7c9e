package monitor

import (
	"time"

	"github.com/bilal/nocturne-agent/internal/alert"
	"github.com/bilal/nocturne-agent/internal/media"
	"github.com/bilal/nocturne-agent/internal/sensor"
	"github.com/bilal/nocturne-agent/internal/snapshot"
	"github.com/bilal/nocturne-agent/internal/system"
	"github.com/bilal/nocturne-agent/internal/weather"
)

// Cache is the latest value of every source. Only the Monitor's loop
// goroutine writes it.
type Cache struct {
	Hardware   sensor.Metrics
	HardwareAt time.Time
	Net        system.Rate
	Disk       system.Rate

	Top   system.TopLists
	TopAt time.Time

	Weather   weather.Snapshot
	WeatherAt time.Time

	Ping   int
	PingAt time.Time

	Media   media.Snapshot
	MediaAt time.Time
}

// HasHardware reports whether a non-empty hardware reading has arrived.
func (c *Cache) HasHardware() bool {
	return len(c.Hardware) > 0
}

// hardware returns the cached reading, or an all-zero placeholder before
// the first one arrives.
func (c *Cache) hardware() sensor.Metrics {
	if c.HasHardware() {
		return c.Hardware
	}
	return sensor.Metrics{
		sensor.CPUTemp:  0,
		sensor.GPUTemp:  0,
		sensor.CPULoad:  0,
		sensor.GPULoad:  0,
		sensor.RAMUsed:  0,
		sensor.RAMTotal: 0,
	}
}

func (c *Cache) input(st alert.State) snapshot.Input {
	return snapshot.Input{
		Hardware: c.hardware(),
		Weather:  c.Weather,
		Media:    c.Media,
		TopCPU:   c.Top.CPU,
		TopRAM:   c.Top.RAM,
		Net:      c.Net,
		Disk:     c.Disk,
		Ping:     c.Ping,
		Alert:    st,
	}
}
