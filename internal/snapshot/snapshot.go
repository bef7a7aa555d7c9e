// Package snapshot builds the wire payload pushed to display clients and
// decides when it is worth pushing.
package snapshot

import (
	"bytes"
	"encoding/json"

	"github.com/bilal/nocturne-agent/internal/system"
)

// Snapshot is one broadcast payload. Field tags are the display's short-key
// vocabulary.
type Snapshot struct {
	CPUTemp   int     `json:"ct"`
	GPUTemp   int     `json:"gt"`
	CPULoad   int     `json:"cl"`
	GPULoad   int     `json:"gl"`
	CPUPower  int     `json:"pw"`
	CPUClock  int     `json:"cc"`
	GPUHot    int     `json:"gh"`
	VRAMLoad  int     `json:"gv"`
	GPUClock  int     `json:"gclock"`
	VRAMClock int     `json:"vclock"`
	GPUPower  int     `json:"gtdp"`
	RAMUsed   float64 `json:"ru"`
	RAMTotal  float64 `json:"ra"`
	VRAMUsed  float64 `json:"vu"`
	VRAMTotal float64 `json:"vt"`

	NetDown int `json:"nd"`
	NetUp   int `json:"nu"`
	Ping    int `json:"pg"`

	CaseFan     int `json:"cf"`
	SystemFan1  int `json:"s1"`
	SystemFan2  int `json:"s2"`
	GPUFan      int `json:"gf"`
	SystemDisk  int `json:"su"`
	DataDisk    int `json:"du"`
	ChipsetTemp int `json:"ch"`
	DiskRead    int `json:"dr"`
	DiskWrite   int `json:"dw"`

	WeatherTemp     int    `json:"wt"`
	WeatherDesc     string `json:"wd"`
	WeatherCode     int    `json:"wi"`
	WeatherDayHigh  int    `json:"w_dh"`
	WeatherDayLow   int    `json:"w_dl"`
	WeatherDayCode  int    `json:"w_dc"`
	WeatherWeekHigh []int  `json:"w_wh"`
	WeatherWeekLow  []int  `json:"w_wl"`
	WeatherWeekCode []int  `json:"w_wc"`

	TopCPU []system.CPUProc `json:"tp"`
	TopRAM []system.RAMProc `json:"tr"`

	Artist      string `json:"art"`
	Track       string `json:"trk"`
	Playing     bool   `json:"mp"`
	Idle        bool   `json:"idle"`
	MediaStatus string `json:"media_status"`
	// Cover is nil ("no new image") unless the track changed since the
	// last sent snapshot.
	Cover *string `json:"cov"`

	Alert        string `json:"alert"`
	TargetScreen string `json:"target_screen"`
	AlertMetric  string `json:"alert_metric"`

	trackKey string
}

// Encode renders s as one compact JSON line terminated by '\n'.
func Encode(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Placeholder is sent to a client that connects before any hardware data
// has been collected.
func Placeholder() []byte {
	return []byte(`{"ct":0,"gt":0,"cl":0,"gl":0,"ru":0,"ra":0}` + "\n")
}
