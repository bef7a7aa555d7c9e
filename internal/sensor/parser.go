// Package sensor flattens a hardware-monitor sensor tree into a Metrics map.
package sensor

import (
	"encoding/json"
	"sort"
)

// Parser maps sensor ids to metric keys. Exact ids win over aliases; ids
// matching neither are offered to the heuristics.
type Parser struct {
	exact      map[string]Key
	alias      map[string]Key
	heuristics []Heuristic
}

func NewParser(exact map[Key]string, alias map[string]Key, heuristics ...Heuristic) *Parser {
	// Reverse the key->id table. Keys are visited in sorted order so a
	// shared id resolves to the same key every time.
	keys := make([]Key, 0, len(exact))
	for k := range exact {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	byID := make(map[string]Key, len(exact))
	for _, k := range keys {
		if _, taken := byID[exact[k]]; !taken {
			byID[exact[k]] = k
		}
	}

	a := make(map[string]Key, len(alias))
	for id, k := range alias {
		a[id] = k
	}

	return &Parser{exact: byID, alias: a, heuristics: heuristics}
}

// NewDefaultParser uses the built-in tables and the prefix heuristic.
func NewDefaultParser(heuristicPrefix string) *Parser {
	return NewParser(DefaultExact(), DefaultAlias(), DefaultHeuristics(heuristicPrefix)...)
}

// Parse walks doc depth-first and returns the metrics found. It accepts any
// decoded JSON shape and never panics on unexpected node types.
func (p *Parser) Parse(doc any) Metrics {
	out := make(Metrics)

	collectors := make([]Collector, 0, len(p.heuristics))
	for _, h := range p.heuristics {
		collectors = append(collectors, h.Begin())
	}

	p.walk(doc, out, collectors)

	for _, c := range collectors {
		c.Finish(out)
	}

	derive(out)
	return out
}

func (p *Parser) walk(node any, out Metrics, collectors []Collector) {
	switch n := node.(type) {
	case []any:
		for _, item := range n {
			p.walk(item, out, collectors)
		}
	case map[string]any:
		if id := nodeID(n); id != "" {
			val := CleanValue(nodeValue(n))
			switch {
			case p.exact[id] != "":
				out[p.exact[id]] = val
			case p.alias[id] != "":
				out[p.alias[id]] = val
			default:
				typ, _ := n["Type"].(string)
				for _, c := range collectors {
					if c.Offer(id, typ, val) {
						break
					}
				}
			}
		}
		if children, ok := n["Children"]; ok {
			p.walk(children, out, collectors)
		}
	}
}

func nodeID(n map[string]any) string {
	if id, ok := n["SensorId"].(string); ok && id != "" {
		return id
	}
	id, _ := n["SensorID"].(string)
	return id
}

// nodeValue prefers Value and falls back to RawValue when Value is absent,
// empty, zero or false.
func nodeValue(n map[string]any) any {
	if v := n["Value"]; !blank(v) {
		return v
	}
	return n["RawValue"]
}

func blank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	}
	return false
}

// derive fills fields computed from raw readings: RAM total from used +
// available, and VRAM from MB to GB.
func derive(out Metrics) {
	used, hasUsed := out[RAMUsed]
	avail, hasAvail := out[RAMTotal]
	if hasUsed && hasAvail {
		out[RAMTotal] = used + avail
	}
	if v, ok := out[VRAMUsed]; ok {
		out[VRAMUsed] = round1(v / 1024)
	}
	if v, ok := out[VRAMTotal]; ok {
		out[VRAMTotal] = round1(v / 1024)
	}
}
