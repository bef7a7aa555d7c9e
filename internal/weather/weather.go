// Package weather reads current conditions and a short forecast from the
// Open-Meteo API.
package weather

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bilal/nocturne-agent/internal/fetcher"
	"github.com/rs/zerolog/log"
)

const forecastDays = 7

// Snapshot is one successful weather reading.
type Snapshot struct {
	Temp      int
	Desc      string
	Code      int
	DayHigh   int
	DayLow    int
	DayCode   int
	WeekHigh  []int
	WeekLow   []int
	WeekCode  []int
	FetchedAt time.Time
}

// Empty reports whether s carries no reading at all.
func (s Snapshot) Empty() bool {
	return s.FetchedAt.IsZero() && s.Desc == "" && s.Temp == 0 && s.Code == 0
}

type Getter interface {
	GetJSON(ctx context.Context, url string, out any) error
}

type Client struct {
	url    string
	client Getter
	now    func() time.Time
}

func URL(lat, lon string) string {
	return fmt.Sprintf("https://api.open-meteo.com/v1/forecast?"+
		"latitude=%s&longitude=%s"+
		"&current=temperature_2m,weather_code"+
		"&daily=temperature_2m_max,temperature_2m_min,weather_code"+
		"&timezone=auto&forecast_days=8", lat, lon)
}

func New(url string, timeout time.Duration) *Client {
	return NewWithGetter(url, fetcher.New("weather", fetcher.Options{Attempts: 2, Timeout: timeout}))
}

func NewWithGetter(url string, g Getter) *Client {
	return &Client{url: url, client: g, now: time.Now}
}

type response struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		WeatherCode *float64 `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Max  []*float64 `json:"temperature_2m_max"`
		Min  []*float64 `json:"temperature_2m_min"`
		Code []*float64 `json:"weather_code"`
	} `json:"daily"`
}

// Fetch returns the current weather. ok is false when the API could not be
// read; callers keep their previous snapshot in that case.
func (c *Client) Fetch(ctx context.Context) (Snapshot, bool) {
	var r response
	if err := c.client.GetJSON(ctx, c.url, &r); err != nil {
		log.Debug().Err(err).Msg("weather fetch failed")
		return Snapshot{}, false
	}

	temp := toInt(r.Current.Temperature)
	code := toInt(r.Current.WeatherCode)

	s := Snapshot{
		Temp:      temp,
		Code:      code,
		Desc:      Describe(code),
		DayHigh:   temp,
		DayLow:    temp,
		DayCode:   code,
		WeekHigh:  firstN(r.Daily.Max, forecastDays),
		WeekLow:   firstN(r.Daily.Min, forecastDays),
		WeekCode:  firstN(r.Daily.Code, forecastDays),
		FetchedAt: c.now(),
	}
	if len(s.WeekHigh) > 0 {
		s.DayHigh = s.WeekHigh[0]
	}
	if len(s.WeekLow) > 0 {
		s.DayLow = s.WeekLow[0]
	}
	if len(s.WeekCode) > 0 {
		s.DayCode = s.WeekCode[0]
	}
	return s, true
}

func toInt(f *float64) int {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return 0
	}
	return int(*f)
}

func firstN(vals []*float64, n int) []int {
	if len(vals) > n {
		vals = vals[:n]
	}
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		out = append(out, toInt(v))
	}
	return out
}

// Describe maps a WMO weather code to a short label.
func Describe(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code >= 1 && code <= 3:
		return "Cloudy"
	case code >= 45 && code <= 48:
		return "Fog"
	case code >= 51 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Showers"
	case code >= 85 && code <= 86:
		return "Snow"
	case code >= 95 && code <= 99:
		return "Storm"
	}
	return "Cloudy"
}
