package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CleanValue turns a raw sensor reading into a number. It never fails:
// anything it cannot read becomes 0.
//
//	CleanValue(nil)       == 0
//	CleanValue("53.5 °C") == 53.5
//	CleanValue("12,5")    == 12.5
//	CleanValue("bad")     == 0
func CleanValue(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		return cleanString(x.String())
	case string:
		return cleanString(x)
	case bool:
		return 0
	default:
		return cleanString(fmt.Sprint(x))
	}
	return finite(f)
}

func cleanString(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// units glued to the number, e.g. "53.5°C" or "1200RPM"
		end := strings.IndexFunc(s, func(r rune) bool {
			return !strings.ContainsRune("+-.0123456789", r)
		})
		if end <= 0 {
			return 0
		}
		if f, err = strconv.ParseFloat(s[:end], 64); err != nil {
			return 0
		}
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// round1 rounds to one decimal place.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
