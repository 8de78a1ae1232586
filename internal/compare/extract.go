package compare

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/goreulmanhae/compare-api/internal/catalog"
)

// compoundExtractors decode structured attribute values into one number.
var compoundExtractors = map[string]func(any) (float64, bool){
	"screen_resolution": resolutionArea,
}

// NumericValue converts the attribute stored under key into a comparable number.
// Missing, non-numeric and non-finite values are 0.
func NumericValue(key string, attrs catalog.AttributeMap) float64 {
	raw := attrs[key]
	if extract, ok := compoundExtractors[key]; ok {
		if v, ok := extract(raw); ok {
			return v
		}
	}
	return toNumber(raw)
}

// resolutionArea returns width×height for {"width", "height"} objects.
func resolutionArea(raw any) (float64, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		if am, isAttr := raw.(catalog.AttributeMap); isAttr {
			obj, ok = am, true
		}
	}
	if !ok {
		return 0, false
	}
	return finite(toNumber(obj["width"]) * toNumber(obj["height"])), true
}

// toNumber coerces a scalar attribute value.
func toNumber(raw any) float64 {
	var v float64
	switch n := raw.(type) {
	case nil:
		return 0
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int8:
		v = float64(n)
	case int16:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint:
		v = float64(n)
	case uint8:
		v = float64(n)
	case uint16:
		v = float64(n)
	case uint32:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		v = f
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		v = f
	default:
		return 0
	}
	return finite(v)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
