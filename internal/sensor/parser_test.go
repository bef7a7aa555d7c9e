package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bilal/nocturne-agent/internal/fetcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestCleanValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"celsius with space", "53.5 °C", 53.5},
		{"celsius glued", "53.5°C", 53.5},
		{"garbage", "bad", 0},
		{"comma decimal", "12,5", 12.5},
		{"empty", "", 0},
		{"whitespace", "   ", 0},
		{"rpm", "1200 RPM", 1200},
		{"float", 42.25, 42.25},
		{"int", 7, 7},
		{"bool", true, 0},
		{"nan", "NaN", 0},
		{"negative", "-3.5 V", -3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanValue(tt.in))
		})
	}
}

func TestParseExactPathAtAnyDepth(t *testing.T) {
	doc := decode(t, `{
		"Children": [{
			"Text": "PC",
			"Children": [{
				"Text": "CPU",
				"Children": [{
					"Children": [{
						"SensorId": "/amdcpu/0/temperature/2",
						"Value": "61,0 °C",
						"Type": "Temperature"
					}]
				}]
			}]
		}]
	}`)

	m := NewDefaultParser("").Parse(doc)

	assert.Equal(t, 61.0, m[CPUTemp])
}

func TestParseLastWriteWins(t *testing.T) {
	doc := decode(t, `[
		{"SensorId": "/amdcpu/0/load/0", "Value": "10 %"},
		{"SensorId": "/amdcpu/0/load/0", "Value": "20 %"}
	]`)

	m := NewDefaultParser("").Parse(doc)

	assert.Equal(t, 20.0, m[CPULoad])
}

func TestParseAliasAndRawValueFallback(t *testing.T) {
	doc := decode(t, `[
		{"SensorID": "/gpu-nvidia/0/temperature/0", "Value": "", "RawValue": "58.0 °C"},
		{"SensorId": "/gpu-nvidia/0/load/0", "Value": "77 %"}
	]`)

	m := NewDefaultParser("").Parse(doc)

	assert.Equal(t, 58.0, m[GPUTemp])
	assert.Equal(t, 77.0, m[GPULoad])
}

func TestParseExactBeatsAlias(t *testing.T) {
	p := NewParser(
		map[Key]string{GPUTemp: "/x/0"},
		map[string]Key{"/x/0": GPUHotspot},
	)

	m := p.Parse(decode(t, `{"SensorId": "/x/0", "Value": "5"}`))

	assert.Equal(t, 5.0, m[GPUTemp])
	assert.NotContains(t, m, GPUHotspot)
}

func TestParseDerivedFields(t *testing.T) {
	doc := decode(t, `[
		{"SensorId": "/ram/data/0", "Value": "8.0 GB"},
		{"SensorId": "/ram/data/1", "Value": "8.0 GB"},
		{"SensorId": "/nvidiagpu/0/smalldata/1", "Value": "2560 MB"},
		{"SensorId": "/nvidiagpu/0/smalldata/2", "Value": "8192 MB"}
	]`)

	m := NewDefaultParser("").Parse(doc)

	assert.Equal(t, 8.0, m[RAMUsed])
	assert.Equal(t, 16.0, m[RAMTotal])
	assert.Equal(t, 2.5, m[VRAMUsed])
	assert.Equal(t, 8.0, m[VRAMTotal])
}

func TestParseRAMTotalNeedsBothReadings(t *testing.T) {
	m := NewDefaultParser("").Parse(decode(t, `[{"SensorId": "/ram/data/1", "Value": "6"}]`))

	assert.Equal(t, 6.0, m[RAMTotal])
	assert.NotContains(t, m, RAMUsed)
}

func TestParseHeuristicFansSortedByID(t *testing.T) {
	doc := decode(t, `{
		"Children": [{
			"Text": "ITE IT8688E",
			"Children": [
				{"SensorId": "/lpc/it8688e/0/fan/2", "Value": "900 RPM", "Type": "Fan"},
				{"SensorId": "/lpc/it8688e/0/fan/0", "Value": "700 RPM", "Type": "Fan"},
				{"SensorId": "/lpc/it8688e/0/temperature/3", "Value": "44 °C", "Type": "Temperature"},
				{"SensorId": "/lpc/it8688e/0/fan/1", "Value": "800 RPM", "Type": "Fan"},
				{"SensorId": "/lpc/it8688e/0/temperature/1", "Value": "39 °C", "Type": "Temperature"},
				{"SensorId": "/lpc/it8688e/0/voltage/0", "Value": "1.2 V", "Type": "Voltage"}
			]
		}]
	}`)

	m := NewParser(nil, nil, DefaultHeuristics("/lpc/it8688e/0")...).Parse(doc)

	assert.Equal(t, 700.0, m[CaseFan])
	assert.Equal(t, 800.0, m[SystemFan1])
	assert.Equal(t, 900.0, m[SystemFan2])
	assert.Equal(t, 39.0, m[ChipsetTemp])
	assert.Len(t, m, 4)
}

func TestParseHeuristicExtraFansIgnored(t *testing.T) {
	doc := decode(t, `[
		{"SensorId": "/lpc/it8688e/0/fan/3", "Value": "4", "Type": "Fan"},
		{"SensorId": "/lpc/it8688e/0/fan/0", "Value": "1", "Type": "Fan"},
		{"SensorId": "/lpc/it8688e/0/fan/2", "Value": "3", "Type": "Fan"},
		{"SensorId": "/lpc/it8688e/0/fan/1", "Value": "2", "Type": "Fan"}
	]`)

	m := NewDefaultParser("/lpc/it8688e/0").Parse(doc)

	assert.Equal(t, 1.0, m[CaseFan])
	assert.Equal(t, 2.0, m[SystemFan1])
	assert.Equal(t, 3.0, m[SystemFan2])
}

func TestParseHeuristicStateDoesNotLeakBetweenPolls(t *testing.T) {
	p := NewDefaultParser("/lpc/it8688e/0")

	first := p.Parse(decode(t, `[{"SensorId": "/lpc/it8688e/0/fan/0", "Value": "1", "Type": "Fan"}]`))
	second := p.Parse(decode(t, `[]`))

	assert.Equal(t, 1.0, first[CaseFan])
	assert.Empty(t, second)
}

type recordingHeuristic struct{ seen *[]string }

func (h recordingHeuristic) Begin() Collector { return h }
func (h recordingHeuristic) Offer(id, _ string, _ float64) bool {
	*h.seen = append(*h.seen, id)
	return true
}
func (recordingHeuristic) Finish(Metrics) {}

func TestParseHeuristicOnlySeesUnmappedIDs(t *testing.T) {
	var seen []string
	p := NewParser(DefaultExact(), DefaultAlias(), recordingHeuristic{seen: &seen})

	p.Parse(decode(t, `[
		{"SensorId": "/amdcpu/0/load/0", "Value": "1"},
		{"SensorId": "/gpu-nvidia/0/load/0", "Value": "1"},
		{"SensorId": "/other/0/thing", "Value": "1"}
	]`))

	assert.Equal(t, []string{"/other/0/thing"}, seen)
}

func TestParseToleratesOddShapes(t *testing.T) {
	docs := []string{
		`null`,
		`42`,
		`"text"`,
		`[[], {}, [null, 1, "x"]]`,
		`{"SensorId": 12, "Value": {"nested": true}, "Children": "nope"}`,
		`{"SensorId": "/amdcpu/0/load/0", "Value": [1, 2]}`,
	}

	p := NewDefaultParser("/lpc/it8688e/0")
	for _, raw := range docs {
		assert.NotPanics(t, func() { p.Parse(decode(t, raw)) }, raw)
	}
}

func TestSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Children": [{"SensorId": "/amdcpu/0/temperature/2", "Value": "55 °C"}]}`))
	}))
	defer srv.Close()

	src := NewSource(srv.URL, fetcher.Options{Attempts: 1, Timeout: time.Second}, NewDefaultParser(""))

	m := src.Fetch(context.Background())

	assert.Equal(t, 55.0, m[CPUTemp])
}

func TestSourceFetchFailureReturnsEmptyMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewSource(srv.URL, fetcher.Options{Attempts: 3, Timeout: time.Second, BaseDelay: time.Millisecond}, NewDefaultParser(""))

	m := src.Fetch(context.Background())

	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestParseZeroValueFallsBackToRawValue(t *testing.T) {
	p := NewDefaultParser("")
	doc := decode(t, `[
		{"SensorId": "/amdcpu/0/temperature/2", "Value": 0, "RawValue": "61 °C"},
		{"SensorId": "/amdcpu/0/load/0", "Value": false, "RawValue": "12,5"},
		{"SensorId": "/amdcpu/0/power/0", "Value": "0", "RawValue": "99"}
	]`)

	m := p.Parse(doc)

	assert.Equal(t, 61.0, m[CPUTemp])
	assert.Equal(t, 12.5, m[CPULoad])
	assert.Equal(t, 0.0, m[CPUPower], "a non-empty string is a real reading")
}

type stubGetter struct {
	doc string
	err error
	url string
}

func (g *stubGetter) GetJSON(_ context.Context, url string, out any) error {
	g.url = url
	if g.err != nil {
		return g.err
	}
	return json.Unmarshal([]byte(g.doc), out)
}

func TestSourceWithGetter(t *testing.T) {
	g := &stubGetter{doc: `{"Children": [{"SensorId": "/ram/data/0", "Value": "9.5 GB"}, {"SensorId": "/ram/data/1", "Value": "6.5 GB"}]}`}
	src := NewSourceWithGetter("http://monitor/data.json", g, NewDefaultParser(""))

	m := src.Fetch(context.Background())

	assert.Equal(t, "http://monitor/data.json", g.url)
	assert.Equal(t, 9.5, m[RAMUsed])
	assert.Equal(t, 16.0, m[RAMTotal])

	g.err = errors.New("connection refused")
	assert.Empty(t, src.Fetch(context.Background()))
}
