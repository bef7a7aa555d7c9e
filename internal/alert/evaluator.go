package alert

import (
	"github.com/bilal/nocturne-agent/internal/config"
	"github.com/bilal/nocturne-agent/internal/sensor"
)

// Target is the display screen an alert points at.
type Target string

const (
	TargetCPU Target = "CPU"
	TargetGPU Target = "GPU"
	TargetRAM Target = "RAM"
)

const (
	// Hysteresis margins: temperatures and loads in °C / %, RAM in GB.
	MarginTemp = 5
	MarginLoad = 5
	MarginRAM  = 2
)

// Rule raises Target when Key reaches Threshold. Metric is the name the
// display knows the alert by.
type Rule struct {
	Key       sensor.Key
	Metric    string
	Target    Target
	Threshold float64
	Margin    float64
}

// State is the latched alert; the zero value means no alert.
type State struct {
	Target Target
	Metric string
}

func (s State) Active() bool {
	return s.Metric != ""
}

// Evaluator latches the first breaching rule and holds it until that rule's
// metric falls below threshold - margin. Lower-priority breaches never
// displace an active alert. It is owned by the orchestrator goroutine and
// is not safe for concurrent use.
type Evaluator struct {
	rules  []Rule
	active int // index into rules, -1 if none
}

func NewEvaluator(rules []Rule) *Evaluator {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Evaluator{rules: r, active: -1}
}

// DefaultRules returns the rules in priority order for the given thresholds.
func DefaultRules(a config.AlertsConfig) []Rule {
	return []Rule{
		{Key: sensor.CPUTemp, Metric: "ct", Target: TargetCPU, Threshold: a.CPUTemp, Margin: MarginTemp},
		{Key: sensor.GPUTemp, Metric: "gt", Target: TargetGPU, Threshold: a.GPUTemp, Margin: MarginTemp},
		{Key: sensor.CPULoad, Metric: "cl", Target: TargetCPU, Threshold: a.CPULoad, Margin: MarginLoad},
		{Key: sensor.GPULoad, Metric: "gl", Target: TargetGPU, Threshold: a.GPULoad, Margin: MarginLoad},
		{Key: sensor.VRAMLoad, Metric: "gv", Target: TargetGPU, Threshold: a.VRAMLoad, Margin: MarginLoad},
		{Key: sensor.RAMUsed, Metric: "ram", Target: TargetRAM, Threshold: a.RAMUsed, Margin: MarginRAM},
	}
}

// Evaluate applies the latch to the current readings and returns the
// resulting state.
func (e *Evaluator) Evaluate(m sensor.Metrics) State {
	if e.active >= 0 {
		r := e.rules[e.active]
		if m.Get(r.Key) >= r.Threshold-r.Margin {
			return e.State()
		}
		e.active = -1
	}

	for i, r := range e.rules {
		if r.Threshold <= 0 {
			// disabled
			continue
		}
		if m.Get(r.Key) >= r.Threshold {
			e.active = i
			break
		}
	}
	return e.State()
}

func (e *Evaluator) State() State {
	if e.active < 0 {
		return State{}
	}
	r := e.rules[e.active]
	return State{Target: r.Target, Metric: r.Metric}
}
