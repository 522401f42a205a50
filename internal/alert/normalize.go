package alert

import (
	"encoding/json"
	"fmt"
	"strconv"

	appErr "ztfalerts/pkg/errors"
)

// FieldPair names a Julian Date source field and its calendar output field.
type FieldPair struct {
	Source string
	Target string
}

// DetectionFields are the pairs normalized for every alert.
var DetectionFields = []FieldPair{
	{Source: FieldFirstDetection, Target: FieldUTCFirstDetection},
	{Source: FieldLatestDetection, Target: FieldUTCLatestDetection},
}

// FieldStatus is the outcome of normalizing one pair.
type FieldStatus int

const (
	FieldSkipped FieldStatus = iota
	FieldConverted
	FieldFailed
)

// FieldResult reports what happened to one pair.
type FieldResult struct {
	Pair   FieldPair
	Status FieldStatus
	Value  string
	Err    error
}

// Normalize converts the detection Julian Dates in place.
// Falsy sources leave the target unset; unconvertible ones set it to null.
func Normalize(rec Record) []FieldResult {
	results := make([]FieldResult, 0, len(DetectionFields))
	for _, pair := range DetectionFields {
		results = append(results, normalizeField(rec, pair))
	}
	return results
}

func normalizeField(rec Record, pair FieldPair) FieldResult {
	res := FieldResult{Pair: pair}
	raw, ok := rec[pair.Source]
	if !ok || isFalsy(raw) {
		res.Status = FieldSkipped
		return res
	}

	jd, err := toFloat(raw)
	if err == nil {
		res.Value, err = JDToISO(jd)
	}
	if err != nil {
		rec[pair.Target] = nil
		res.Status = FieldFailed
		res.Err = appErr.Wrapf(err, appErr.TimestampConversionFailed, "convert %s", pair.Source)
		return res
	}

	rec[pair.Target] = res.Value
	res.Status = FieldConverted
	return res
}

func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case float64:
		return val == 0
	case int:
		return val == 0
	case int64:
		return val == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case json.Number:
		return strconv.ParseFloat(val.String(), 64)
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("value of type %T is not a julian date", v)
	}
}
