package sensor

// Key is a short metric identifier shared with the display wire protocol.
type Key string

const (
	CPUTemp     Key = "ct"
	CPULoad     Key = "cl"
	CPUPower    Key = "pw"
	CPUClock    Key = "cc"
	GPUTemp     Key = "gt"
	GPUHotspot  Key = "gh"
	GPULoad     Key = "gl"
	GPUFan      Key = "gf"
	VRAMLoad    Key = "gv"
	VRAMUsed    Key = "vu"
	VRAMTotal   Key = "vt"
	GPUClock    Key = "gclock"
	VRAMClock   Key = "vclock"
	GPUPower    Key = "gtdp"
	RAMUsed     Key = "ru"
	RAMTotal    Key = "ra" // raw: available; derived: used + available
	SystemDisk  Key = "su"
	DataDisk    Key = "du"
	CaseFan     Key = "cf"
	SystemFan1  Key = "s1"
	SystemFan2  Key = "s2"
	ChipsetTemp Key = "ch"
)

// Metrics is one complete hardware poll.
type Metrics map[Key]float64

// Get returns the value for k or 0.
func (m Metrics) Get(k Key) float64 {
	return m[k]
}

// Clone returns an independent copy.
func (m Metrics) Clone() Metrics {
	out := make(Metrics, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DefaultExact maps metric keys to LibreHardwareMonitor sensor ids.
func DefaultExact() map[Key]string {
	return map[Key]string{
		CPUTemp:    "/amdcpu/0/temperature/2",
		CPULoad:    "/amdcpu/0/load/0",
		CPUPower:   "/amdcpu/0/power/0",
		CPUClock:   "/amdcpu/0/clock/1",
		GPUTemp:    "/nvidiagpu/0/temperature/0",
		GPUHotspot: "/nvidiagpu/0/temperature/1",
		GPULoad:    "/nvidiagpu/0/load/0",
		GPUFan:     "/nvidiagpu/0/fan/0",
		VRAMLoad:   "/nvidiagpu/0/load/1",
		VRAMUsed:   "/nvidiagpu/0/smalldata/1",
		VRAMTotal:  "/nvidiagpu/0/smalldata/2",
		GPUClock:   "/nvidiagpu/0/clock/0",
		VRAMClock:  "/nvidiagpu/0/clock/4",
		GPUPower:   "/nvidiagpu/0/power/0",
		RAMUsed:    "/ram/data/0",
		RAMTotal:   "/ram/data/1",
		SystemDisk: "/hdd/0/load/0",
		DataDisk:   "/hdd/1/load/0",
	}
}

// DefaultAlias covers the "gpu-nvidia" id scheme of some monitor versions.
func DefaultAlias() map[string]Key {
	return map[string]Key{
		"/gpu-nvidia/0/temperature/0": GPUTemp,
		"/gpu-nvidia/0/temperature/1": GPUHotspot,
		"/gpu-nvidia/0/temperature/2": GPUHotspot,
		"/gpu-nvidia/0/load/0":        GPULoad,
		"/gpu-nvidia/0/fan/0":         GPUFan,
		"/gpu-nvidia/0/fan/1":         GPUFan,
		"/gpu-nvidia/0/load/1":        VRAMLoad,
		"/gpu-nvidia/0/smalldata/1":   VRAMUsed,
		"/gpu-nvidia/0/smalldata/2":   VRAMTotal,
		"/gpu-nvidia/0/clock/0":       GPUClock,
		"/gpu-nvidia/0/clock/4":       VRAMClock,
		"/gpu-nvidia/0/power/0":       GPUPower,
	}
}
