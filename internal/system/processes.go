package system

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

const (
	maxNameLen = 20
	minRSSMB   = 10
)

// CPUProc is one entry of the top-CPU list; JSON keys match the wire format.
type CPUProc struct {
	Name    string `json:"n"`
	Percent int    `json:"c"`
}

// RAMProc is one entry of the top-memory list.
type RAMProc struct {
	Name string `json:"n"`
	MB   int    `json:"r"`
}

// TopLists holds both process rankings.
type TopLists struct {
	CPU []CPUProc
	RAM []RAMProc
}

// ProcInfo is the subset of a process the rankings need.
type ProcInfo struct {
	Name       string
	CPUPercent float64
	RSSBytes   uint64
}

// ProcLister enumerates running processes.
type ProcLister func(ctx context.Context) ([]ProcInfo, error)

// TopProcesses ranks processes by CPU and resident memory.
type TopProcesses struct {
	list ProcLister
	nCPU int
	nRAM int
}

func NewTopProcesses(nCPU, nRAM int) *TopProcesses {
	return NewTopProcessesWithLister(listProcesses, nCPU, nRAM)
}

func NewTopProcessesWithLister(list ProcLister, nCPU, nRAM int) *TopProcesses {
	return &TopProcesses{list: list, nCPU: nCPU, nRAM: nRAM}
}

// Collect returns the top nCPU processes by CPU and the top nRAM by RSS.
func (t *TopProcesses) Collect(ctx context.Context) (TopLists, error) {
	procs, err := t.list(ctx)
	if err != nil {
		return TopLists{}, fmt.Errorf("list processes: %w", err)
	}
	return TopLists{
		CPU: rankCPU(procs, t.nCPU),
		RAM: rankRAM(procs, t.nRAM),
	}, nil
}

func rankCPU(procs []ProcInfo, n int) []CPUProc {
	out := make([]CPUProc, 0, len(procs))
	for _, p := range procs {
		if p.CPUPercent <= 0 {
			continue
		}
		out = append(out, CPUProc{Name: truncate(p.Name, maxNameLen), Percent: int(p.CPUPercent)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func rankRAM(procs []ProcInfo, n int) []RAMProc {
	out := make([]RAMProc, 0, len(procs))
	for _, p := range procs {
		name := strings.TrimSpace(p.Name)
		// Windows' compressed-memory pseudo process dwarfs real ones
		if strings.Contains(strings.ToLower(name), "memcompression") {
			continue
		}
		mb := float64(p.RSSBytes) / (1024 * 1024)
		if mb <= minRSSMB {
			continue
		}
		out = append(out, RAMProc{Name: truncate(name, maxNameLen), MB: int(mb)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MB > out[j].MB })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

func listProcesses(ctx context.Context) ([]ProcInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProcInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			// gone or access denied
			continue
		}
		info := ProcInfo{Name: name}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = cpu
		}
		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			info.RSSBytes = mem.RSS
		}
		out = append(out, info)
	}
	return out, nil
}
