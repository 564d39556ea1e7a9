package convert

import (
	"math"
	"strconv"
	"strings"

	"github.com/cryguy/valuebridge/internal/core"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// maxGenericDepth bounds nested extraction so cyclic objects fail instead
// of recursing forever.
const maxGenericDepth = 32

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToValueMap extracts a plain engine object into a Go map. Values become
// bool, float64, string, nil (for null), []any or map[string]any.
// Undefined properties are omitted; functions and other values with no Go
// counterpart fail the whole extraction.
func (b *Bridge[V]) ToValueMap(v V) (map[string]any, error) {
	if !b.a.IsObject(v) || b.a.IsArray(v) || b.a.IsFunction(v) {
		return nil, errors.Wrap(core.ErrTypeMismatch, "value is not a plain object")
	}
	return b.objectToGo(v, 0)
}

func (b *Bridge[V]) objectToGo(obj V, depth int) (map[string]any, error) {
	keys, err := b.a.Keys(obj)
	if err != nil {
		return nil, errors.Wrap(err, "listing object keys")
	}
	result := make(map[string]any, len(keys))
	for _, k := range keys {
		prop, err := b.a.GetProperty(obj, k)
		if err != nil {
			return nil, errors.Wrapf(err, "reading property %q", k)
		}
		if b.a.IsUndefined(prop) {
			continue
		}
		val, err := b.valueToGo(prop, depth+1)
		b.a.Free(prop)
		if err != nil {
			return nil, errors.Wrapf(err, "property %q", k)
		}
		result[k] = val
	}
	return result, nil
}

func (b *Bridge[V]) valueToGo(v V, depth int) (any, error) {
	if depth > maxGenericDepth {
		return nil, errors.Wrapf(core.ErrTypeMismatch, "nesting deeper than %d", maxGenericDepth)
	}
	switch {
	case b.a.IsBoolean(v):
		return b.a.UnwrapBoolean(v), nil
	case b.a.IsNumber(v):
		return b.a.UnwrapNumber(v), nil
	case b.a.IsString(v):
		return b.a.ToNativeString(v)
	case b.a.IsFunction(v):
		return nil, errors.Wrap(core.ErrTypeMismatch, "functions cannot be converted")
	case b.a.IsArray(v):
		return b.arrayToGo(v, depth)
	case b.a.IsObject(v):
		return b.objectToGo(v, depth)
	case b.a.SameValue(v, b.a.Null()):
		return nil, nil
	}
	return nil, errors.Wrap(core.ErrTypeMismatch, "unsupported value")
}

func (b *Bridge[V]) arrayToGo(arr V, depth int) ([]any, error) {
	n, err := b.a.ArrayLength(arr)
	if err != nil {
		return nil, errors.Wrap(err, "reading array length")
	}
	result := make([]any, 0, n)
	for i := uint32(0); i < n; i++ {
		elem, err := b.a.GetElement(arr, i)
		if err != nil {
			return nil, errors.Wrapf(err, "reading element %d", i)
		}
		var val any
		if !b.a.IsUndefined(elem) {
			val, err = b.valueToGo(elem, depth+1)
		}
		b.a.Free(elem)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		result = append(result, val)
	}
	return result, nil
}

// stringify renders an extracted value the way the engine would show it:
// numbers like Number#toString, nested values as JSON, null as "".
func stringify(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return formatNumber(v), nil
	default:
		data, err := json.Marshal(jsonSafe(v))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// jsonSafe replaces NaN and the infinities inside nested values with nil,
// which JSON.stringify writes as null.
func jsonSafe(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	case []any:
		for i := range v {
			v[i] = jsonSafe(v[i])
		}
	case map[string]any:
		for k := range v {
			v[k] = jsonSafe(v[k])
		}
	}
	return v
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case math.Abs(f) >= 1e-6 && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	return strings.Replace(strings.Replace(s, "e-0", "e-", 1), "e+0", "e+", 1)
}
