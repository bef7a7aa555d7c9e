package sensor

import (
	"sort"
	"strings"
)

// Heuristic classifies sensors that have no exact or alias mapping. A new
// Collector is started for every parse so heuristics hold no state between
// polls.
type Heuristic interface {
	Begin() Collector
}

// Collector buffers candidate readings during traversal and assigns them
// once the whole document has been seen.
type Collector interface {
	// Offer reports whether the reading was claimed.
	Offer(id, typ string, value float64) bool
	Finish(out Metrics)
}

// PrefixHeuristic claims every sensor under Prefix and sorts it into a fan or
// temperature bucket by its declared type. After traversal each bucket is
// ordered by sensor id and its first entries fill the slots in order.
type PrefixHeuristic struct {
	Prefix    string
	FanSlots  []Key
	TempSlots []Key
}

// DefaultHeuristics returns the Super I/O classifier for the given device
// prefix (e.g. "/lpc/it8688e/0").
func DefaultHeuristics(prefix string) []Heuristic {
	if prefix == "" {
		return nil
	}
	return []Heuristic{PrefixHeuristic{
		Prefix:    prefix,
		FanSlots:  []Key{CaseFan, SystemFan1, SystemFan2},
		TempSlots: []Key{ChipsetTemp},
	}}
}

func (h PrefixHeuristic) Begin() Collector {
	return &prefixCollector{h: h}
}

type reading struct {
	id    string
	value float64
}

type prefixCollector struct {
	h     PrefixHeuristic
	fans  []reading
	temps []reading
}

func (c *prefixCollector) Offer(id, typ string, value float64) bool {
	if c.h.Prefix == "" || !strings.HasPrefix(id, c.h.Prefix) {
		return false
	}
	typ = strings.ToLower(typ)
	switch {
	case strings.Contains(typ, "fan"):
		c.fans = append(c.fans, reading{id, value})
	case strings.Contains(typ, "temperature"), strings.Contains(typ, "temp"):
		c.temps = append(c.temps, reading{id, value})
	default:
		return false
	}
	return true
}

func (c *prefixCollector) Finish(out Metrics) {
	assignSorted(c.fans, c.h.FanSlots, out)
	assignSorted(c.temps, c.h.TempSlots, out)
}

func assignSorted(rs []reading, slots []Key, out Metrics) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].id < rs[j].id })
	for i, r := range rs {
		if i >= len(slots) {
			return
		}
		out[slots[i]] = r.value
	}
}
